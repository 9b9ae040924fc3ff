package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/frahmantamala/plant-operations/internal/permission"
	"github.com/frahmantamala/plant-operations/internal/session"
	"github.com/frahmantamala/plant-operations/internal/user"
	"github.com/spf13/cobra"
)

var (
	matrixUserID   int64
	matrixModule   string
	matrixLevel    string
	matrixCategory string
	matrixUnit     string
	matrixFile     string
	matrixInterval time.Duration
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Inspect and manage user permission matrices",
}

var matrixBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Print the effective permission matrix of a user",
	Run: func(cmd *cobra.Command, args []string) {
		withDependencies(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			u, err := deps.Services.User.GetWithPermissions(ctx, matrixUserID)
			if err != nil {
				return err
			}
			return printJSON(struct {
				UserID      int64             `json:"user_id"`
				Username    string            `json:"username"`
				Role        user.Role         `json:"role"`
				Permissions permission.Matrix `json:"permissions"`
			}{u.ID, u.Username, u.Role, u.Permissions})
		})
	},
}

var matrixCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a user holds a level on a module",
	Run: func(cmd *cobra.Command, args []string) {
		withDependencies(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			level, ok := permission.ParseLevel(matrixLevel)
			if !ok {
				return fmt.Errorf("unknown level %q", matrixLevel)
			}

			u, err := deps.Services.User.GetWithPermissions(ctx, matrixUserID)
			if err != nil {
				return err
			}

			var scope *permission.Scope
			if matrixCategory != "" || matrixUnit != "" {
				scope = &permission.Scope{Category: matrixCategory, Unit: matrixUnit}
			}
			allowed := u.Checker().HasPermission(matrixModule, level, scope)
			permission.ObserveCheck(matrixModule, allowed)

			fmt.Printf("user=%d module=%s level=%s scope=%s allowed=%t\n",
				u.ID, matrixModule, level, scopeString(scope), allowed)
			if !allowed {
				return errDenied
			}
			return nil
		})
	},
}

var matrixSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace a user's permissions_data document from a JSON file",
	Run: func(cmd *cobra.Command, args []string) {
		withDependencies(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			raw, err := os.ReadFile(matrixFile)
			if err != nil {
				return err
			}
			var m permission.Matrix
			if err := json.Unmarshal(raw, &m); err != nil {
				return fmt.Errorf("parse %s: %w", matrixFile, err)
			}
			if err := deps.Services.Permission.SetUserMatrix(ctx, matrixUserID, m); err != nil {
				return err
			}
			fmt.Printf("permission matrix replaced for user %d\n", matrixUserID)
			return nil
		})
	},
}

var matrixWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Hold a session for a user and print the matrix whenever it changes",
	Run: func(cmd *cobra.Command, args []string) {
		withDependencies(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			store := session.NewStore(deps.Services.User, deps.Bus, deps.Logger)
			defer store.Cleanup()

			var (
				mu   sync.Mutex
				last *permission.Matrix
			)
			unsubscribe := store.Subscribe(func(u *user.User) {
				mu.Lock()
				defer mu.Unlock()
				if last != nil && last.Equal(u.Permissions) {
					return
				}
				m := u.Permissions.Clone()
				last = &m
				fmt.Printf("[%s] matrix for %s:\n", time.Now().Format(time.RFC3339), u.Username)
				_ = printJSON(u.Permissions)
			})
			defer unsubscribe()

			if _, err := store.Init(ctx, matrixUserID); err != nil {
				return err
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			ticker := time.NewTicker(matrixInterval)
			defer ticker.Stop()

			// writes from other processes do not reach this bus, so poll as well
			for {
				select {
				case <-sigChan:
					return nil
				case <-ticker.C:
					if _, err := store.Refresh(ctx); err != nil {
						deps.Logger.Warn("matrix refresh failed", "user_id", matrixUserID, "error", err)
					}
				}
			}
		})
	},
}

var errDenied = errors.New("permission denied")

// withDependencies runs fn against freshly opened dependencies and exits non-zero on failure.
func withDependencies(ctx context.Context, fn func(ctx context.Context, deps *Dependencies) error) {
	if ctx == nil {
		ctx = context.Background()
	}
	deps, err := initializeDependencies(ctx)
	if err != nil {
		log.Fatalf("failed to init dependencies: %v", err)
	}

	err = fn(ctx, deps)
	deps.Close()

	switch {
	case err == nil:
	case errors.Is(err, errDenied):
		os.Exit(2)
	default:
		deps.Logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func scopeString(s *permission.Scope) string {
	if s == nil {
		return "any"
	}
	return s.Category + "/" + s.Unit
}

func init() {
	matrixCmd.PersistentFlags().Int64Var(&matrixUserID, "user", 0, "user id")
	_ = matrixCmd.MarkPersistentFlagRequired("user")

	matrixCheckCmd.Flags().StringVar(&matrixModule, "module", "", "module name (dashboard, plant_operations, inspection, project_management)")
	matrixCheckCmd.Flags().StringVar(&matrixLevel, "level", "READ", "required level")
	matrixCheckCmd.Flags().StringVar(&matrixCategory, "category", "", "plant category (plant_operations only)")
	matrixCheckCmd.Flags().StringVar(&matrixUnit, "unit", "", "plant unit (plant_operations only)")
	_ = matrixCheckCmd.MarkFlagRequired("module")

	matrixSetCmd.Flags().StringVar(&matrixFile, "file", "", "JSON matrix document")
	_ = matrixSetCmd.MarkFlagRequired("file")

	matrixWatchCmd.Flags().DurationVar(&matrixInterval, "interval", 30*time.Second, "refresh interval")

	matrixCmd.AddCommand(matrixBuildCmd, matrixCheckCmd, matrixSetCmd, matrixWatchCmd)
}
