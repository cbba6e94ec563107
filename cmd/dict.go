package main

import (
	"context"
	"fmt"

	"github.com/ljcooper54/DeID/internal/formatter"
	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/shared"
	"github.com/urfave/cli/v3"
)

// DictList shows the active project's token dictionary.
func (r *Runner) DictList(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(cmd)
	if err != nil {
		return err
	}

	entries, err := r.store.Entries(ctx, sess)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type entryRow struct {
			Token     string `json:"token"`
			Type      string `json:"type"`
			Original  string `json:"original"`
			FirstSeen string `json:"first_seen"`
		}
		rows := make([]entryRow, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, entryRow{
				Token:     e.Token(),
				Type:      string(e.EntityType()),
				Original:  e.Original(),
				FirstSeen: e.FirstSeen().Format("2006-01-02 15:04:05"),
			})
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Dictionary (%d entries)", len(entries)))
	for _, e := range entries {
		r.writePlain("%-14s %-10s %s\n", e.Token(), e.EntityType(), e.Original())
	}
	if len(entries) == 0 {
		r.writePlain("Dictionary is empty. Run 'deid obscure <file>' to populate it.\n")
	}
	return nil
}

// DictExport writes the dictionary to a file for review.
func (r *Runner) DictExport(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(cmd)
	if err != nil {
		return err
	}

	entries, err := r.store.Entries(ctx, sess)
	if err != nil {
		return err
	}

	project, err := r.projects.Get(sess.ProjectID)
	if err != nil {
		return err
	}

	format := cmd.String("format")
	path := cmd.String("output")
	if path == "" {
		path = fmt.Sprintf("Dictionary_%s.%s", project.Name(), format)
	}

	written, err := formatter.WriteDictionaryExport(project.Name(), entries, format, path)
	if err != nil {
		return err
	}

	r.logger.Info("dictionary exported", "project", project.Name(), "path", written)
	r.writePlain("✓ Exported %d entries to %s\n", len(entries), written)
	return nil
}

// DictCorrectType fixes a misclassified entry. The token keeps its original
// prefix so documents already obscured with it still restore.
func (r *Runner) DictCorrectType(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(cmd)
	if err != nil {
		return err
	}

	token := cmd.StringArg("token")
	if token == "" {
		return fmt.Errorf("%w: token", shared.ErrMissingArgument)
	}
	entityType, err := models.ParseEntityType(cmd.String("type"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	if err := r.store.CorrectType(ctx, sess, token, entityType); err != nil {
		return err
	}

	r.writePlain("✓ %s reclassified as %s (token unchanged)\n", token, entityType)
	return nil
}

// DictRemove deletes a dictionary entry. Entries whose token has appeared in
// restored output need --force.
func (r *Runner) DictRemove(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(cmd)
	if err != nil {
		return err
	}

	original := cmd.StringArg("original")
	if original == "" {
		return fmt.Errorf("%w: original value", shared.ErrMissingArgument)
	}

	if err := r.store.Delete(ctx, sess, original, cmd.Bool("force")); err != nil {
		return err
	}

	r.writePlain("✓ Mapping for '%s' deleted\n", original)
	return nil
}
