package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// completionCmd represents the completion command.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for revise. Topic and strategy
names complete from your database.

To load completions:

Bash:
  $ source <(revise completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ revise completion bash > /etc/bash_completion.d/revise
  # macOS:
  $ revise completion bash > $(brew --prefix)/etc/bash_completion.d/revise

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ revise completion zsh > "${fpath[1]}/_revise"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ revise completion fish | source

  # To load completions for each session, execute once:
  $ revise completion fish > ~/.config/fish/completions/revise.fish

PowerShell:
  PS> revise completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	Annotations:           map[string]string{skipRuntime: "true"},
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
