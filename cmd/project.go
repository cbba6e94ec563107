package main

import (
	"context"
	"fmt"

	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/shared"
	"github.com/urfave/cli/v3"
)

// ProjectCreate creates a project and switches the session to it.
func (r *Runner) ProjectCreate(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(cmd)
	if err != nil {
		return err
	}

	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: project name", shared.ErrMissingArgument)
	}

	project := models.NewProject(0, sess.UserID, name, cmd.String("notes"))
	if err := r.projects.Create(project); err != nil {
		return err
	}
	if err := r.accounts.UseProject(sess, project.ID()); err != nil {
		return err
	}

	r.logger.Info("project created", "name", name, "id", project.ID())
	r.writePlain("✓ Project '%s' created and set as active\n", name)
	return nil
}

// ProjectList lists the account's projects.
func (r *Runner) ProjectList(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(cmd)
	if err != nil {
		return err
	}

	projects, err := r.projects.List(map[string]any{"owner_id": sess.UserID})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type projectRow struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Notes   string `json:"notes,omitempty"`
			Created string `json:"created_at"`
			Active  bool   `json:"active"`
		}
		rows := make([]projectRow, 0, len(projects))
		for _, p := range projects {
			rows = append(rows, projectRow{
				ID:      p.ID(),
				Name:    p.Name(),
				Notes:   p.Notes(),
				Created: p.CreatedAt().Format("2006-01-02"),
				Active:  p.ID() == sess.ProjectID,
			})
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Projects for %s", sess.Username))
	for i, p := range projects {
		marker := " "
		if p.ID() == sess.ProjectID {
			marker = "*"
		}
		r.writePlain("%s %d. %s", marker, i+1, p.Name())
		if p.Notes() != "" {
			r.writePlain(" — %s", p.Notes())
		}
		r.writePlain("\n")
	}
	if len(projects) == 0 {
		r.writePlain("No projects yet. Create one with 'deid project create <name>'.\n")
	}
	return nil
}

// ProjectUse switches the active project, remembered for future sessions.
func (r *Runner) ProjectUse(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(cmd)
	if err != nil {
		return err
	}

	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: project name", shared.ErrMissingArgument)
	}

	project, err := r.projects.GetByName(sess.UserID, name)
	if err != nil {
		return fmt.Errorf("%w: project '%s'", shared.ErrAccessDenied, name)
	}
	if err := r.accounts.UseProject(sess, project.ID()); err != nil {
		return err
	}

	r.writePlain("✓ Active project is now '%s'\n", name)
	return nil
}
