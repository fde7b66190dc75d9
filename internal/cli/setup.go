package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fmueller/enscribe/internal/download"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSetupCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Download and verify the speech model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader, err := app.newLoader()
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			resolved, err := loader.Prepare(ctx, true)
			if err != nil {
				return err
			}
			if resolved.IsCustomPath {
				writef(cmd.OutOrStdout(), "Using custom model at %s\n", resolved.Path)
				return nil
			}

			err = loader.Verify(resolved)
			if errors.Is(err, download.ErrChecksumMismatch) {
				app.log().Warn("model checksum verification failed; downloading fresh copy", zap.String("model", resolved.Name), zap.Error(err))
				if rmErr := os.Remove(resolved.Path); rmErr != nil {
					return fmt.Errorf("remove corrupt model: %w", rmErr)
				}
				if resolved, err = loader.Prepare(ctx, true); err != nil {
					return err
				}
				err = loader.Verify(resolved)
			}
			if err != nil {
				return fmt.Errorf("verify model %s: %w", resolved.Name, err)
			}

			app.log().Info("model ready", zap.String("model", resolved.Name), zap.String("path", resolved.Path))
			writef(cmd.OutOrStdout(), "Model %s ready at %s\n", resolved.Name, resolved.Path)
			return nil
		},
	}
}
