package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/understudy-bot/understudy/internal/cli.version=1.2.3"
	version = "0.4.1"
	logo    = "\n" +
		"                 _               _             _\n" +
		" _   _ _ __   __| | ___ _ __ ___| |_ _   _  __| |_   _\n" +
		"| | | | '_ \\ / _` |/ _ \\ '__/ __| __| | | |/ _` | | | |\n" +
		"| |_| | | | | (_| |  __/ |  \\__ \\ |_| |_| | (_| | |_| |\n" +
		" \\__,_|_| |_|\\__,_|\\___|_|  |___/\\__|\\__,_|\\__,_|\\__, |\n" +
		"                                                 |___/\n"
)

var rootCmd = &cobra.Command{
	Use:   "understudy",
	Short: "understudy - WhatsApp persona auto-responder",
	Long:  color.CyanString(logo) + "\nAnswers your WhatsApp chats in character while you are away.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("understudy")
		fmt.Printf("Version: %s\n", version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func printHeader(title string) {
	fmt.Println(color.CyanString("== %s ==", title))
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(personasCmd)
	rootCmd.AddCommand(historyCmd)
}
