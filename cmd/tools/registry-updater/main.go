// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"business-ranking-workers/internal/common/validation"
	"business-ranking-workers/pkg/registry"

	"github.com/spf13/cobra"
)

var registryPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "registry-updater",
	Short: "Inspect and maintain the activity registry",
	Long:  "registry-updater validates configs/activity-registry.json, lists the registered task types and edits activity metadata.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&registryPath, "path", "p", "configs/activity-registry.json", "Path to registry file")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(checkCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate registry structure and compile every input schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := validateRegistry(reg); err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}
		fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered task types",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		for _, a := range reg.Activities {
			fmt.Printf("%-24s %-10s %-6s retries=%d  %s\n", a.TaskType, a.Category, a.Timeout, a.Retries, a.DisplayName)
		}
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id> <field> <value>",
	Short: "Update one field of an activity",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := updateActivity(reg, args[0], args[1], args[2]); err != nil {
			return err
		}
		reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
		if err := saveRegistry(reg, registryPath); err != nil {
			return err
		}
		fmt.Printf("Updated activity %s, field %s to %s\n", args[0], args[1], args[2])
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <taskType> <variables-json>",
	Short: "Validate job variables against a task type's input schema",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		v, err := validation.NewValidator(reg)
		if err != nil {
			return err
		}
		result, err := v.Validate(args[0], args[1])
		if err != nil {
			return err
		}
		if !result.Valid {
			return fmt.Errorf("invalid variables: %s", result.Summary())
		}
		fmt.Println("Variables are valid.")
		return nil
	},
}

// knownErrorCodes are the codes a job may surface to a BPMN error boundary.
var knownErrorCodes = map[string]bool{
	"INVALID_INPUT":              true,
	"NOT_FOUND":                  true,
	"ALREADY_CLAIMED":            true,
	"INVALID_CLAIM_STATE":        true,
	"INSUFFICIENT_DATA":          true,
	"AMBIGUOUS_MATCH":            true,
	"PARTIAL_BATCH_FAILURE":      true,
	"DATABASE_CONNECTION_FAILED": true,
	"QUERY_EXECUTION_FAILED":     true,
	"DATABASE_TIMEOUT":           true,
	"RANKING_CACHE_FAILED":       true,
	"SEARCH_INDEX_FAILED":        true,
	"NOTIFICATION_SEND_FAILED":   true,
	"EVENT_PUBLISH_FAILED":       true,
}

func validateRegistry(reg *registry.ActivityRegistry) error {
	if len(reg.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	var problems []string
	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	for _, a := range reg.Activities {
		if a.ID == "" {
			problems = append(problems, fmt.Sprintf("activity %s missing required field: ID", a.TaskType))
		} else if ids[a.ID] {
			problems = append(problems, fmt.Sprintf("duplicate activity ID: %s", a.ID))
		}
		ids[a.ID] = true

		if taskTypes[a.TaskType] {
			problems = append(problems, fmt.Sprintf("duplicate task type: %s", a.TaskType))
		}
		taskTypes[a.TaskType] = true

		if a.DisplayName == "" {
			problems = append(problems, fmt.Sprintf("activity %s missing required field: DisplayName", a.ID))
		}
		if a.Category == "" {
			problems = append(problems, fmt.Sprintf("activity %s missing required field: Category", a.ID))
		}
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				problems = append(problems, fmt.Sprintf("activity %s has invalid timeout %q", a.ID, a.Timeout))
			}
		}
		for _, code := range a.ErrorCodes {
			if !knownErrorCodes[code] {
				problems = append(problems, fmt.Sprintf("activity %s declares unknown error code %s", a.ID, code))
			}
		}
	}

	if _, err := validation.NewValidator(reg); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

func updateActivity(reg *registry.ActivityRegistry, id, field, value string) error {
	for i := range reg.Activities {
		if reg.Activities[i].ID != id {
			continue
		}
		a := &reg.Activities[i]
		switch field {
		case "version":
			a.Version = value
		case "displayName":
			a.DisplayName = value
		case "description":
			a.Description = value
		case "category":
			a.Category = value
		case "timeout":
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid timeout value: %w", err)
			}
			a.Timeout = value
		case "retries":
			retries, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid retries value: %w", err)
			}
			a.Retries = retries
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		return nil
	}
	return fmt.Errorf("activity with ID %s not found", id)
}

// saveRegistry handles saving the registry to file
func saveRegistry(reg *registry.ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}
