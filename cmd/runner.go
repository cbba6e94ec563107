package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/ljcooper54/DeID/internal/auth"
	"github.com/ljcooper54/DeID/internal/detect"
	"github.com/ljcooper54/DeID/internal/detect/ner"
	"github.com/ljcooper54/DeID/internal/dictionary"
	"github.com/ljcooper54/DeID/internal/docs"
	"github.com/ljcooper54/DeID/internal/engine"
	"github.com/ljcooper54/DeID/internal/repositories"
	"github.com/ljcooper54/DeID/internal/restorecache"
	"github.com/ljcooper54/DeID/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config   *shared.Config
	logger   *log.Logger
	output   io.Writer
	db       *sql.DB
	cache    restorecache.Cache
	users    *repositories.UserRepository
	projects *repositories.ProjectRepository
	audit    *repositories.AuditRepository
	accounts *auth.Service
	store    *dictionary.Store
	engine   *engine.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
//
// DB and Cache are optional; when nil the runner opens them lazily from the
// config on the first command that needs them.
type RunnerOpts struct {
	Config *shared.Config
	DB     *sql.DB
	Cache  restorecache.Cache
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
		db:     opts.DB,
		cache:  opts.Cache,
	}
	if r.db != nil {
		r.wire()
	}
	return r
}

// SetLogger swaps the runner's logger; the TUI uses this to redirect logs to a file.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// ensure opens the database and restore cache from the config if the runner
// was constructed without them, then wires the full service stack.
func (r *Runner) ensure() error {
	if r.engine != nil {
		return nil
	}

	if r.db == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database (run 'deid setup' first): %w", err)
		}
		r.db = db
	}

	if r.cache == nil {
		if r.config.Cache.Path != "" {
			cache, err := restorecache.Open(r.config.Cache.Path)
			if err != nil {
				return fmt.Errorf("failed to open restore cache: %w", err)
			}
			r.cache = cache
		} else {
			r.cache = restorecache.NewMemory()
		}
	}

	r.wire()
	return nil
}

// wire builds repositories, the auth service, the dictionary store, the
// detector, and the engine on top of the open database and cache.
func (r *Runner) wire() {
	if r.cache == nil {
		r.cache = restorecache.NewMemory()
	}

	r.users = repositories.NewUserRepository(r.db)
	r.projects = repositories.NewProjectRepository(r.db)
	r.audit = repositories.NewAuditRepository(r.db)
	entries := repositories.NewEntryRepository(r.db)
	keywords := repositories.NewKeywordRepository(r.db)

	r.accounts = auth.NewService(r.users, r.projects, r.config.Auth.BcryptCost)
	r.store = dictionary.NewStore(entries, keywords, r.cache, r.logger)

	classifiers := []detect.Classifier{detect.NewRuleClassifier()}
	if r.config.Classifier.Endpoint != "" {
		timeout := time.Duration(r.config.Classifier.TimeoutSeconds) * time.Second
		classifiers = append(classifiers, ner.New(r.config.Classifier.Endpoint, timeout, r.config.Classifier.MinConfidence))
	}
	detector := detect.NewDetector(r.config.Classifier.FailOpen, r.logger, classifiers...)

	r.engine = engine.New(detector, r.store, r.cache, docs.NewRegistry(), r.audit, r.logger)
}

// Close releases the database and cache handles.
func (r *Runner) Close() {
	if r.db != nil {
		r.db.Close()
	}
	if r.cache != nil {
		r.cache.Close()
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, accountCommand, projectCommand, keywordCommand, dictCommand, obscureCommand, restoreCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// authFlags are the credential flags shared by every authenticated command.
// DEID_USER and DEID_PASSWORD environment variables serve as fallbacks so
// the password never has to appear in shell history.
func authFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "Account username (or DEID_USER)",
		},
		&cli.StringFlag{
			Name:  "password",
			Usage: "Account password (or DEID_PASSWORD)",
		},
		&cli.StringFlag{
			Name:    "project",
			Aliases: []string{"p"},
			Usage:   "Project name to operate on (defaults to last used)",
		},
	}
}

// session authenticates the invocation from flags or environment and switches
// to the requested project when one is named.
func (r *Runner) session(cmd *cli.Command) (*auth.Session, error) {
	if err := r.ensure(); err != nil {
		return nil, err
	}

	username := cmd.String("user")
	if username == "" {
		username = os.Getenv("DEID_USER")
	}
	password := cmd.String("password")
	if password == "" {
		password = os.Getenv("DEID_PASSWORD")
	}
	if username == "" {
		return nil, fmt.Errorf("%w: --user flag or DEID_USER environment variable", shared.ErrMissingArgument)
	}

	sess, err := r.accounts.Login(username, password)
	if err != nil {
		return nil, err
	}

	if name := cmd.String("project"); name != "" {
		project, err := r.projects.GetByName(sess.UserID, name)
		if err != nil {
			return nil, fmt.Errorf("%w: project '%s'", shared.ErrAccessDenied, name)
		}
		if err := r.accounts.UseProject(sess, project.ID()); err != nil {
			return nil, err
		}
	}

	return sess, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
