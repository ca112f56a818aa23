package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/apex/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lucasrcosta20/IA-Cadastro/internal/infrastructure/promptstore"
	"github.com/lucasrcosta20/IA-Cadastro/internal/usecase"
)

func init() {
	promptSetCmd.Flags().StringP("template", "t", "", "new prompt template")
	promptSetCmd.Flags().StringP("template-file", "f", "", "read the new prompt template from a file")
	promptSetCmd.Flags().StringP("system", "s", "", "new system prompt")
	promptValidateCmd.Flags().StringP("file", "f", "", "read the template from a file")

	promptCmd.AddCommand(promptShowCmd)
	promptCmd.AddCommand(promptSetCmd)
	promptCmd.AddCommand(promptResetCmd)
	promptCmd.AddCommand(promptValidateCmd)
	promptCmd.AddCommand(promptImportCmd)
	promptCmd.AddCommand(promptExportCmd)
	promptCmd.AddCommand(promptVariablesCmd)
	rootCmd.AddCommand(promptCmd)
}

var promptCmd = &cobra.Command{
	Use:     "prompt",
	Aliases: []string{"prompts"},
	Short:   "Manage the prompt template and system prompt",
}

func newTemplater() *usecase.PromptTemplater {
	return usecase.NewPromptTemplater(promptstore.New(cfg.Prompts.Path))
}

var promptShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active prompts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		set := newTemplater().Prompts()
		title := color.New(color.Bold).SprintFunc()
		fmt.Printf("%s\n%s\n\n%s\n%s\n", title("System:"), set.System, title("Template:"), set.Template)
		if !set.UpdatedAt.IsZero() {
			fmt.Printf("\nUpdated: %s\n", set.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var promptSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the template, the system prompt, or both",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var template, system *string

		if cmd.Flags().Changed("template") {
			v, _ := cmd.Flags().GetString("template")
			template = &v
		}
		if path, _ := cmd.Flags().GetString("template-file"); path != "" {
			if template != nil {
				return fmt.Errorf("use only one of --template and --template-file")
			}
			data, err := os.ReadFile(filepath.Clean(path))
			if err != nil {
				return fmt.Errorf("failed to read template: %w", err)
			}
			v := string(data)
			template = &v
		}
		if cmd.Flags().Changed("system") {
			v, _ := cmd.Flags().GetString("system")
			system = &v
		}
		if template == nil && system == nil {
			return fmt.Errorf("nothing to set: pass --template, --template-file or --system")
		}

		if err := newTemplater().Update(template, system); err != nil {
			return describeTemplateError(err)
		}
		log.WithField("file", cfg.Prompts.Path).Info("prompts saved")
		return nil
	},
}

var promptResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the built-in prompts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newTemplater().Reset()
	},
}

var promptValidateCmd = &cobra.Command{
	Use:   "validate [TEMPLATE]",
	Short: "Check a template without applying it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var template string
		path, _ := cmd.Flags().GetString("file")
		switch {
		case path != "":
			data, err := os.ReadFile(filepath.Clean(path))
			if err != nil {
				return fmt.Errorf("failed to read template: %w", err)
			}
			template = string(data)
		case len(args) == 1:
			template = args[0]
		default:
			return fmt.Errorf("pass a template or --file")
		}

		if err := newTemplater().Validate(template); err != nil {
			return describeTemplateError(err)
		}
		fmt.Println(color.GreenString("✓ template is valid"))
		return nil
	},
}

var promptImportCmd = &cobra.Command{
	Use:   "import <FILE.yaml>",
	Short: "Load prompts from a YAML file and apply them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newTemplater().Import(args[0]); err != nil {
			return describeTemplateError(err)
		}
		return nil
	},
}

var promptExportCmd = &cobra.Command{
	Use:   "export <FILE.yaml>",
	Short: "Write the active prompts to a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return newTemplater().Export(args[0])
	},
}

var promptVariablesCmd = &cobra.Command{
	Use:   "variables",
	Short: "List the placeholders a template may use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printVariables(os.Stdout, newTemplater().Variables())
		return nil
	},
}

func printVariables(out io.Writer, vars []usecase.Variable) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, v := range vars {
		fmt.Fprintf(w, "%s\t%s\n", v.Placeholder, v.Description)
	}
	w.Flush()
}

func describeTemplateError(err error) error {
	var tplErr *usecase.TemplateError
	if errors.As(err, &tplErr) && tplErr.Placeholder != "" {
		return fmt.Errorf("%w (valid placeholders: iacadastro prompt variables)", err)
	}
	return err
}
