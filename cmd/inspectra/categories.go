package main

import (
	"fmt"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/webinspectra/go-webinspectra/internal/signatures"
)

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the technology categories of the loaded signature database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			inspector, err := buildInspector(log)
			if err != nil {
				return err
			}

			categories := inspector.Store().Categories()
			ids := make([]int, 0, len(categories))
			for id := range categories {
				ids = append(ids, id)
			}
			sort.Ints(ids)

			rows := pterm.TableData{{"ID", "Name", "Priority"}}
			for _, id := range ids {
				cat := categories[id]
				rows = append(rows, []string{
					fmt.Sprintf("%d", id), cat.Name, fmt.Sprintf("%d", cat.Priority),
				})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
		},
	}
}

func newSignaturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signatures",
		Short: "Manage the signature database",
	}
	cmd.AddCommand(newSignaturesShowCmd())
	cmd.AddCommand(newSignaturesUpdateCmd())
	return cmd
}

func newSignaturesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List the technologies in the loaded signature database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			inspector, err := buildInspector(log)
			if err != nil {
				return err
			}
			for _, name := range inspector.Store().Names() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newSignaturesUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Refresh the cached copy of a remote signature database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			url, _ := cmd.Flags().GetString("url")
			categoriesURL, _ := cmd.Flags().GetString("categories-url")
			if url == "" {
				return fmt.Errorf("please provide --url")
			}
			dir, err := signatures.UpdateCache(signatures.RemoteConfig{
				SignaturesURL: url,
				CategoriesURL: categoriesURL,
			}, log)
			if err != nil {
				return err
			}
			fmt.Printf("signature cache refreshed at %s\n", dir)
			return nil
		},
	}
	cmd.Flags().String("url", "", "Signature database URL")
	cmd.Flags().String("categories-url", "", "Category table URL")
	return cmd
}
