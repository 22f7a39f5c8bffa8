package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"library-lending/config"
	"library-lending/library"
	"library-lending/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// app is the state shared by every command of one process run.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	mgr     *library.LibraryManager
	session library.Session
	out     io.Writer
	asJSON  bool
}

func main() {
	a := &app{out: os.Stdout}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	var dataDir, driver string
	root := &cobra.Command{
		Use:           "library",
		Short:         "Library lending: books, members, loans and fines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !needsLibrary(cmd) {
				return nil
			}
			var ops []config.Option
			if dataDir != "" {
				ops = append(ops, config.WithDataDir(dataDir))
			}
			if driver != "" {
				ops = append(ops, config.WithDriver(driver))
			}
			return a.open(cmd.Context(), needsLogin(cmd), ops...)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.shell(cmd.Context(), os.Stdin)
		},
	}
	root.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (overrides LIBRARY_DATA_DIR)")
	root.PersistentFlags().StringVar(&driver, "driver", "", "storage driver: file or sqlite (overrides LIBRARY_STORAGE_DRIVER)")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		newBookCmd(a),
		newMemberCmd(a),
		newLoanCmd(a),
		newPasswdCmd(a),
		newStatsCmd(a),
	)
	return root
}

// needsLibrary is false for cobra's own help and completion commands.
func needsLibrary(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "help" || c.Name() == "completion" {
			return false
		}
	}
	return true
}

// publicAnnotation marks read-only catalog commands that run without an
// operator login.
const publicAnnotation = "public"

// needsLogin is false for public commands. "book list" is public only when
// restricted to available books.
func needsLogin(cmd *cobra.Command) bool {
	if cmd.Annotations[publicAnnotation] == "true" {
		return false
	}
	if cmd.Annotations[publicAnnotation] == "available" {
		avail, err := cmd.Flags().GetBool("available")
		return err != nil || !avail
	}
	return true
}

// open loads configuration, opens the library and, when login is set, logs
// the operator in.
func (a *app) open(ctx context.Context, login bool, ops ...config.Option) error {
	cfg, err := config.Load(ops...)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.NewLogger(cfg.Log, "library")

	mgr, err := library.NewLibraryManager(ctx, cfg.Storage, a.log)
	if err != nil {
		return errors.Wrap(err, "open library")
	}
	a.mgr = mgr
	if !login {
		return nil
	}

	password := cfg.Operator.Password
	if password == "" {
		if password, err = readPassword(fmt.Sprintf("Password for %s: ", cfg.Operator.Username)); err != nil {
			_ = a.close()
			return errors.Wrap(err, "read password")
		}
	}
	s, err := mgr.Operators.Login(ctx, cfg.Operator.Username, password)
	if err != nil {
		_ = a.close()
		return err
	}
	a.session = s
	a.log = a.log.With(zap.Stringer("session", s.ID), zap.String("operator", s.Operator.Username))
	return nil
}

func (a *app) close() error {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.mgr == nil {
		return nil
	}
	return a.mgr.Close()
}

// readPassword securely reads a password with masking
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(os.Stderr)
	return strings.TrimSpace(string(bytePassword)), nil
}

// emit prints v as JSON when --json is set, otherwise calls text.
func (a *app) emit(v any, text func()) error {
	if !a.asJSON {
		text()
		return nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode json")
	}
	fmt.Fprintln(a.out, string(b))
	return nil
}
