package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"cancioneiro/internal/modkit/module"
	pipedomain "cancioneiro/internal/services/pipeline/domain"
	pipemod "cancioneiro/internal/services/pipeline/module"

	"github.com/spf13/cobra"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate [text...]",
	Short: "Annotate text through the layered pipeline",
	Long: `annotate tokenizes the given text (or stdin when no argument is given) and
runs it through the cache, the grammar rules, the external NLP fallback and,
unless --no-classify is set, the semantic classifier. Cache writes go to the
configured backend.`,
	RunE: runAnnotate,
}

func init() {
	annotateCmd.Flags().Bool("no-classify", false, "skip the semantic classifier")
	annotateCmd.Flags().Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		text = string(b)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("nothing to annotate")
	}

	deps, closeFn, err := openDeps(cmd.Context(), "ctl")
	if err != nil {
		return err
	}
	defer closeFn()

	pipe := module.MustPortsOf[pipemod.Ports](pipemod.New(deps, pipemod.Options{})).Pipeline
	if noClassify, _ := cmd.Flags().GetBool("no-classify"); noClassify {
		pipe = pipe.WithoutSemantic()
	}
	res, err := pipe.Annotate(cmd.Context(), text)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return printWords(cmd.OutOrStdout(), res)
}

func printWords(out io.Writer, res pipedomain.Result) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSURFACE\tLEMMA\tPOS\tSOURCE\tORIGIN\tCONF\tDOMAIN")
	for _, w := range res.Words {
		dom := "-"
		if w.Domain != nil {
			dom = string(w.Domain.Code)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%.2f\t%s\n",
			w.Index, w.Surface, w.Lemma, w.POS, w.Source, w.Origin, w.Confidence, dom)
	}
	s := res.Stats
	fmt.Fprintf(tw, "\ntokens=%d cached=%d rule=%d external=%d unresolved=%d classified=%d fallback=%d\n",
		s.Tokens, s.Cached, s.Rule, s.External, s.Unresolved, s.Classified, s.Fallback)
	return tw.Flush()
}
