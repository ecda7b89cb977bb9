package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/taskhive/backend/internal/services"
	"gopkg.in/yaml.v3"
)

// readPoolFile accepts either a bare YAML list or a document with an "entries" key.
func readPoolFile(path string) ([]services.TaskPoolInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []services.TaskPoolInput
	if err := yaml.Unmarshal(data, &entries); err != nil {
		var doc struct {
			Entries []services.TaskPoolInput `yaml:"entries"`
		}
		if err2 := yaml.Unmarshal(data, &doc); err2 != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		entries = doc.Entries
	}

	for i, e := range entries {
		if e.Content == "" {
			return nil, fmt.Errorf("entry %d: content is required", i)
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s contains no entries", path)
	}
	return entries, nil
}

func importPoolCmd() *cobra.Command {
	var projectID uint
	var file string
	cmd := &cobra.Command{
		Use:   "import-pool",
		Short: "Append task pool entries to a project from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := readPoolFile(file)
			if err != nil {
				return err
			}
			_, db, err := openDB()
			if err != nil {
				return err
			}
			added, err := services.NewProjectService(db).AppendTaskPool(cmd.Context(), projectID, entries)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(map[string]any{"project_id": projectID, "added": added})
			}
			fmt.Printf("appended %d entries to project %d\n", added, projectID)
			return nil
		},
	}
	cmd.Flags().UintVar(&projectID, "project", 0, "project id")
	cmd.Flags().StringVar(&file, "file", "", "YAML file with a list of {content, image_url}")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
