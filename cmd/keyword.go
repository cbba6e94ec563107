package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/shared"
	"github.com/urfave/cli/v3"
)

// KeywordAdd registers a forced-match rule for the active project or account.
func (r *Runner) KeywordAdd(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(cmd)
	if err != nil {
		return err
	}

	pattern := cmd.StringArg("pattern")
	if pattern == "" {
		return fmt.Errorf("%w: pattern", shared.ErrMissingArgument)
	}

	entityType, err := models.ParseEntityType(cmd.String("type"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	rule, err := r.store.AddKeywordRule(ctx, sess, pattern, entityType, cmd.Bool("user-wide"), cmd.Bool("case-sensitive"))
	if err != nil {
		return err
	}

	scope := "project"
	if cmd.Bool("user-wide") {
		scope = "account"
	}
	r.writePlain("✓ Rule '%s' (%s, %s-wide) added with ID %s\n", pattern, entityType, scope, rule.ID())
	return nil
}

// KeywordList shows the rules in effect for the active project.
func (r *Runner) KeywordList(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(cmd)
	if err != nil {
		return err
	}

	rules, err := r.store.KeywordRules(ctx, sess)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type ruleRow struct {
			ID            string `json:"id"`
			Pattern       string `json:"pattern"`
			Type          string `json:"type"`
			Scope         string `json:"scope"`
			CaseSensitive bool   `json:"case_sensitive"`
		}
		rows := make([]ruleRow, 0, len(rules))
		for _, rule := range rules {
			rows = append(rows, ruleRow{
				ID:            rule.ID(),
				Pattern:       rule.Pattern(),
				Type:          string(rule.EntityType()),
				Scope:         ruleScope(rule),
				CaseSensitive: rule.CaseSensitive(),
			})
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Keyword Rules")
	for _, rule := range rules {
		r.writePlain("%s  %-20s %-10s %s\n", rule.ID(), rule.Pattern(), rule.EntityType(), ruleScope(rule))
	}
	if len(rules) == 0 {
		r.writePlain("No keyword rules. Add one with 'deid keyword add <pattern>'.\n")
	}
	return nil
}

// KeywordRemove deletes a rule by ID.
func (r *Runner) KeywordRemove(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(cmd)
	if err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: rule ID", shared.ErrMissingArgument)
	}
	if err := r.store.RemoveKeywordRule(ctx, sess, id); err != nil {
		return err
	}

	r.writePlain("✓ Rule %s removed\n", id)
	return nil
}

// KeywordImport bulk-loads rules from a file with one 'pattern[,type]' per
// line. Blank lines and lines starting with '#' are skipped; the type
// defaults to CUSTOM.
func (r *Runner) KeywordImport(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(cmd)
	if err != nil {
		return err
	}

	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: file path", shared.ErrMissingArgument)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read keyword file: %w", err)
	}

	userWide := cmd.Bool("user-wide")
	added, skipped := 0, 0
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pattern := line
		entityType := models.EntityCustom
		if idx := strings.LastIndex(line, ","); idx >= 0 {
			if et, err := models.ParseEntityType(line[idx+1:]); err == nil {
				entityType = et
				pattern = strings.TrimSpace(line[:idx])
			}
		}

		if _, err := r.store.AddKeywordRule(ctx, sess, pattern, entityType, userWide, false); err != nil {
			r.logger.Warn("skipping keyword", "pattern", pattern, "error", err)
			skipped++
			continue
		}
		added++
	}

	r.writePlain("✓ Imported %d rules from %s", added, path)
	if skipped > 0 {
		r.writePlain(" (%d skipped)", skipped)
	}
	r.writePlain("\n")
	return nil
}

func ruleScope(rule *models.KeywordRule) string {
	if rule.UserID() != "" {
		return "account"
	}
	return "project"
}
