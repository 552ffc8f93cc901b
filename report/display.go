package report

import (
	"fmt"

	"github.com/pterm/pterm"
)

var (
	WarnColorFG  = pterm.FgYellow
	WarnStyleBG  = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorColorFG = pterm.FgRed
	ErrorStyleBG = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG  = pterm.FgLightGreen
	InfoStyleBG  = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
)

// displayFatal displays a fatal backend error message.
func displayFatal(message string) {
	ErrorStyleBG.Print("Backend Error")
	ErrorColorFG.Println(" " + message)
}

// displayVerification displays a verification failure for a routine.
func displayVerification(routine string, err error) {
	ErrorStyleBG.Print("Verification")
	ErrorColorFG.Println(fmt.Sprintf(" %s: %s", routine, err.Error()))
}

// displayModuleDump displays the produced module for debugging a
// verification failure.
func displayModuleDump(dump string) {
	fmt.Println("-- produced module --")
	fmt.Println(dump)
}

// displayWarning displays a warning message.
func displayWarning(message string) {
	WarnStyleBG.Print("Warning")
	WarnColorFG.Println(" " + message)
}

// displayInfo displays an informational message.
func displayInfo(message string) {
	InfoStyleBG.Print("Codegen")
	InfoColorFG.Println(" " + message)
}
