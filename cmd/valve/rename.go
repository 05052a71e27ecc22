package main

import (
	"github.com/spf13/cobra"
)

func renameCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename a table, column, or datatype in the meta-tables",
	}
	cmd.AddCommand(renameTableCmd(g), renameColumnCmd(g), renameDatatypeCmd(g))
	return cmd
}

func renameTableCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "table <old> <new>",
		Short: "Rename a table and every column/rule reference to it",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			old, new := args[0], args[1]
			if err := renameMetaValue(a.cfg.Tables["table"].Path, "table", old, new); err != nil {
				return err
			}
			if err := renameMetaValue(a.cfg.Tables["column"].Path, "table", old, new); err != nil {
				return err
			}
			if rt, ok := a.cfg.Tables["rule"]; ok {
				if err := renameMetaValue(rt.Path, "table", old, new); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func renameColumnCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "column <table> <old> <new>",
		Short: "Rename a column within one table",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			return renameColumnInMeta(a.cfg.Tables["column"].Path, args[0], args[1], args[2])
		},
	}
}

func renameDatatypeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "datatype <old> <new>",
		Short: "Rename a datatype and every column/parent reference to it",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			old, new := args[0], args[1]
			if err := renameMetaValue(a.cfg.Tables["datatype"].Path, "datatype", old, new); err != nil {
				return err
			}
			if err := renameMetaValue(a.cfg.Tables["datatype"].Path, "parent", old, new); err != nil {
				return err
			}
			return renameMetaValue(a.cfg.Tables["column"].Path, "datatype", old, new)
		},
	}
}
