package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/chuangyeshuo/vanadev/doctor"
	"github.com/chuangyeshuo/vanadev/errors"
	"github.com/chuangyeshuo/vanadev/logger"
)

// DoctorCmd diagnoses the contributor environment
var DoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the working copy and host environment",
	Long: `Check the working copy and host for common contribution problems:
repository and manifest presence, interpreter availability per declared
environment, hook installation, and memory/disk headroom.

Exits non-zero when any check fails; warnings alone do not fail.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	// Without a manifest the working directory is still worth diagnosing:
	// doctor reports the missing manifest as a finding.
	root := ""
	if manifest, err := findManifest(); err == nil {
		root = manifest.Root()
	} else if errors.IsNotFoundError(err) {
		cwd, wdErr := os.Getwd()
		if wdErr != nil {
			return errors.Wrap(wdErr, "determine working directory")
		}
		root = cwd
	} else {
		return err
	}

	report := doctor.New(root, logger.Logger).Run(cmd.Context())
	doctor.Render(report)

	if !report.Healthy() {
		return errors.New("one or more checks failed")
	}
	return nil
}
