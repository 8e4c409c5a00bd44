package commands

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/spf13/cobra"

	"github.com/chuangyeshuo/vanadev/conf"
	"github.com/chuangyeshuo/vanadev/envfile"
	"github.com/chuangyeshuo/vanadev/errors"
	"github.com/chuangyeshuo/vanadev/logger"
	"github.com/chuangyeshuo/vanadev/notebook"
	"github.com/chuangyeshuo/vanadev/vcsspec"
)

// ChecklistCmd rewrites sample notebooks for a pull request branch
var ChecklistCmd = &cobra.Command{
	Use:   "checklist <branch|spec>",
	Short: "Point sample notebooks at a branch and print the PR checklist",
	Long: `Rewrite the sample notebooks' install cells to a branch-specific VCS
install spec and print the manual validation checklist.

The argument is either a branch name, combined with the repository's origin
URL and the package name from vanadev.toml, or a complete install spec of
the form git+<url>@<ref>#egg=<name>[<extras>].

Examples:
  vanadev checklist my-feature-branch
  vanadev checklist my-feature-branch --extras chromadb,snowflake,openai
  vanadev checklist 'git+https://github.com/you/sqlvana@fix#egg=sqlvana[all]'
  vanadev checklist my-feature-branch --verify`,
	Args: cobra.ExactArgs(1),
	RunE: runChecklist,
}

var (
	checklistURLFlag    string
	checklistEggFlag    string
	checklistExtrasFlag []string
	checklistVerifyFlag bool
	checklistDryRunFlag bool
)

func init() {
	ChecklistCmd.Flags().StringVar(&checklistURLFlag, "url", "", "Repository URL (default: the origin remote)")
	ChecklistCmd.Flags().StringVar(&checklistEggFlag, "egg", "", "Distribution name (default: package from vanadev.toml)")
	ChecklistCmd.Flags().StringSliceVar(&checklistExtrasFlag, "extras", nil, "Extras for the install spec (default: the default env's extras)")
	ChecklistCmd.Flags().BoolVar(&checklistVerifyFlag, "verify", false, "Fetch the spec's ref to confirm it exists before rewriting")
	ChecklistCmd.Flags().BoolVar(&checklistDryRunFlag, "dry-run", false, "Show the spec and target notebooks without rewriting")
}

func runChecklist(cmd *cobra.Command, args []string) error {
	cfg, err := conf.Load()
	if err != nil {
		return err
	}
	manifest, err := findManifest()
	if err != nil {
		return err
	}

	spec, err := checklistSpec(args[0], manifest)
	if err != nil {
		return err
	}

	if checklistVerifyFlag {
		fmt.Printf("Verifying %s\n", spec.String())
		resolved, err := vcsspec.Resolve(cmd.Context(), spec, logger.Logger)
		if err != nil {
			return err
		}
		resolved.Cleanup()
		fmt.Println("Ref resolved")
	}

	checklist := notebook.NewChecklist(manifest.Root(), cfg.Notebook.Globs, logger.Logger)

	if checklistDryRunFlag {
		paths, err := checklist.Notebooks()
		if err != nil {
			return err
		}
		fmt.Printf("Install spec: %s\n\nWould rewrite:\n", spec.String())
		for _, path := range paths {
			fmt.Printf("  %s\n", path)
		}
		return nil
	}

	rewrites, err := checklist.Apply(spec)
	if err != nil {
		return err
	}
	notebook.Print(spec, rewrites)
	return nil
}

// checklistSpec builds the install spec from the argument and flags.
// A full git+ spec argument is parsed as-is; anything else is a ref.
func checklistSpec(arg string, manifest *envfile.Manifest) (*vcsspec.Spec, error) {
	if strings.HasPrefix(arg, "git+") {
		return vcsspec.Parse(arg)
	}

	url := checklistURLFlag
	if url == "" {
		var err error
		url, err = originURL(manifest.Root())
		if err != nil {
			return nil, errors.WithHint(err,
				"pass --url when the working copy has no origin remote")
		}
	}

	egg := checklistEggFlag
	if egg == "" {
		egg = manifest.PackageName()
	}

	extras := checklistExtrasFlag
	if extras == nil {
		extras = defaultExtras(manifest)
	}

	spec := &vcsspec.Spec{URL: url, Ref: arg, Egg: egg, Extras: extras}
	// Round-trip through Parse so flag input gets the same validation
	// as a pasted spec string.
	return vcsspec.Parse(spec.String())
}

// defaultExtras picks the extras of the first declared environment
func defaultExtras(manifest *envfile.Manifest) []string {
	if len(manifest.EnvList) == 0 {
		return nil
	}
	env, err := manifest.Env(manifest.EnvList[0])
	if err != nil {
		return nil
	}
	return env.Extras
}

// originURL reads the origin remote of the working copy and normalizes
// it to the https form used in install specs.
func originURL(root string) (string, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return "", errors.Wrap(err, "open repository")
	}
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return "", errors.Wrap(err, "origin remote")
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errors.New("origin remote has no URL")
	}
	return normalizeRemoteURL(urls[0]), nil
}

// normalizeRemoteURL converts scp-like ssh remotes (git@host:owner/repo.git)
// to https and strips the .git suffix.
func normalizeRemoteURL(url string) string {
	if rest, ok := strings.CutPrefix(url, "ssh://git@"); ok {
		url = "https://" + rest
	} else if rest, ok := strings.CutPrefix(url, "git@"); ok {
		if host, path, found := strings.Cut(rest, ":"); found {
			url = "https://" + host + "/" + path
		}
	}
	return strings.TrimSuffix(url, ".git")
}
