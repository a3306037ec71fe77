package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/khanhnv2901/seca-scan/internal/scanner"
	"github.com/khanhnv2901/seca-scan/internal/template"
	"github.com/spf13/cobra"
)

var (
	templatesPath = defaultTemplatesPath
	templatesTags []string
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the templates a scan would load",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		templates, err := loadTemplates(appCtx, templatesPath, templatesTags)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSEVERITY\tPROTOCOLS\tSPECS\tTAGS")
		for _, tmpl := range templates {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				tmpl.ID,
				tmpl.Info.Name,
				severityTitle(tmpl.Info.Severity),
				strings.Join(templateProtocols(tmpl), ","),
				scanner.CountSpecs([]*template.Template{tmpl}),
				strings.Join(tmpl.Info.Tags, ","),
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s %d templates, %d request specs\n",
			colorInfo("→"), len(templates), scanner.CountSpecs(templates))
		return nil
	},
}

func templateProtocols(tmpl *template.Template) []string {
	var protocols []string
	for _, block := range tmpl.Blocks() {
		protocols = append(protocols, string(block.Protocol))
	}
	return protocols
}

func init() {
	templatesCmd.Flags().StringVarP(&templatesPath, "templates", "t", templatesPath, "template file or directory")
	templatesCmd.Flags().StringSliceVar(&templatesTags, "tag", nil, "only list templates with any of these tags (comma separated)")
}
