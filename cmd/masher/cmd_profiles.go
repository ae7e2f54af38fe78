package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buttonmasher/masher/internal/profile"
)

func (c *cli) profilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"profile"},
		Short:   "List and manage profiles",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			doc := store.Document()
			active := doc.ActiveProfile()
			for i, p := range doc.Profiles {
				marker := " "
				if i == active {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d. %s (%d sets)\n", marker, i+1, p.Name, len(p.Sets))
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add [NAME]",
		Short: "Add a profile with one default set",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			var added string
			_, err := c.edit(func(doc *profile.Document) error {
				i := doc.AddProfile(name)
				added = doc.Profiles[i].Name
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Added profile %q\n", added)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.edit(func(doc *profile.Document) error {
				i, err := doc.Find(args[0])
				if err != nil {
					return err
				}
				return doc.DeleteProfile(i)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Deleted profile %q\n", args[0])
			return nil
		},
	}

	rename := &cobra.Command{
		Use:   "rename OLD NEW",
		Short: "Rename a profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.edit(func(doc *profile.Document) error {
				i, err := doc.Find(args[0])
				if err != nil {
					return err
				}
				return doc.RenameProfile(i, args[1])
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✏️  Renamed %q to %q\n", args[0], args[1])
			return nil
		},
	}

	export := &cobra.Command{
		Use:   "export PATH",
		Short: "Write all profiles to another file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			doc := store.Document()
			doc.LastFilePath = ""
			if err := profile.WriteFile(args[0], doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "📤 Exported %d profiles to %s\n", len(doc.Profiles), args[0])
			return nil
		},
	}

	imp := &cobra.Command{
		Use:   "import PATH",
		Short: "Replace the profiles with the ones in another file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			target := store.Path()
			if err := store.LoadFrom(args[0]); err != nil {
				return err
			}
			if err := store.SaveAs(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "📥 Imported %d profiles from %s\n", len(store.Document().Profiles), args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add, del, rename, export, imp)
	return cmd
}
