package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/shopadmin/internal/constants"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// parseID parses a positive resource id.
func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", constants.ErrInvalidID, arg)
	}

	return id, nil
}

// deleteFunc removes the resource with the given id.
type deleteFunc func(ctx context.Context, client shop.Client, id int) error

// createDeleteCommand builds a delete command that asks for confirmation
// unless --force is given.
func createDeleteCommand(entityType string, remove deleteFunc) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   fmt.Sprintf("delete %s_ID", strings.ToUpper(entityType)),
		Short: "Delete a " + entityType,
		Long:  "Delete a " + entityType + " by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if !force {
				confirmed, err := confirmDelete(cmd, entityType, id)
				if err != nil {
					return err
				}

				if !confirmed {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")

					return nil
				}
			}

			ctx := context.Background()

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			err = remove(ctx, sess.client, id)
			if err != nil {
				return fmt.Errorf("failed to delete %s: %w", entityType, err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted %s %d\n", entityType, id)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "force deletion without confirmation")

	return cmd
}

// confirmDelete asks on a terminal; without one, deletion needs --force.
func confirmDelete(cmd *cobra.Command, entityType string, id int) (bool, error) {
	p := newPrompter(cmd)
	if !p.interactive() {
		return false, constants.ErrDeleteNotConfirm
	}

	answer, err := p.ask(fmt.Sprintf("Really delete %s %d? (y/N): ", entityType, id))
	if err != nil {
		return false, err
	}

	return answer == "y" || answer == "Y", nil
}
