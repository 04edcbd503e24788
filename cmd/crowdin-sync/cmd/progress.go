package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/bianoble/crowdin-sync/internal/remote"
	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

var (
	progressSort     bool
	progressDetailed bool
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show translation progress per target language",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		cat, err := newCatalog(cfg, newLogger())
		if err != nil {
			return err
		}
		pr, ok := cat.(remote.ProgressReader)
		if !ok {
			return syncerr.New(syncerr.KindConfiguration, "progress", errors.New("catalog does not report translation progress"))
		}

		langs, err := pr.Progress(cmd.Context(), cfg.ProjectID)
		if err != nil {
			return err
		}
		if len(langs) == 0 {
			info("No target languages.")
			return nil
		}

		sortProgress(langs, progressSort)
		for _, l := range langs {
			fmt.Fprintf(stdout, "%-8s %-24s %3d%% translated  %3d%% approved\n",
				l.LanguageID, languageName(l.LanguageID), l.TranslationProgress, l.ApprovalProgress)
			if progressDetailed {
				fmt.Fprintf(stdout, "         words   %d/%d translated, %d approved\n", l.Words.Translated, l.Words.Total, l.Words.Approved)
				fmt.Fprintf(stdout, "         phrases %d/%d translated, %d approved\n", l.Phrases.Translated, l.Phrases.Total, l.Phrases.Approved)
			}
		}
		return nil
	},
}

// sortProgress orders by language id, or by translation progress
// (highest first) when byProgress is set.
func sortProgress(langs []remote.LanguageProgress, byProgress bool) {
	sort.SliceStable(langs, func(i, j int) bool {
		if byProgress && langs[i].TranslationProgress != langs[j].TranslationProgress {
			return langs[i].TranslationProgress > langs[j].TranslationProgress
		}
		return langs[i].LanguageID < langs[j].LanguageID
	})
}

// languageName returns the English display name of a Crowdin language id,
// or the id itself when it is not a BCP 47 tag.
func languageName(id string) string {
	tag, err := language.Parse(id)
	if err != nil {
		return id
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return id
}

func init() {
	progressCmd.Flags().BoolVar(&progressSort, "sort-progress", false, "sort by translation progress instead of language")
	progressCmd.Flags().BoolVar(&progressDetailed, "detailed", false, "show word and phrase counts")
	rootCmd.AddCommand(progressCmd)
}
