package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autom8ter/gamedb"
	"github.com/autom8ter/gamedb/backend/registry"
	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
)

func (c *cli) idsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ids <collection>",
		Short: "list the ids of every record in a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s *gamedb.Store) error {
				ids, err := s.GetAllIDs(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
}

func (c *cli) getCmd() *cobra.Command {
	var opts renderOpts
	cmd := &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "print a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			return c.withStore(cmd.Context(), func(s *gamedb.Store) error {
				doc, err := s.Get(cmd.Context(), args[0], id)
				if err != nil {
					return err
				}
				if doc.Empty() {
					return errors.New(errors.NotFound, "%s/%d does not exist", args[0], id)
				}
				return render(cmd.OutOrStdout(), doc, opts)
			})
		},
	}
	cmd.Flags().StringVarP(&opts.path, "path", "p", "", "select part of the record with a gjson path, ex: Inventory.0.Name")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "json", "output format (json, yaml, flat)")
	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "render the record with a go template (sprig functions available)")
	return cmd
}

func (c *cli) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <collection> <id> <field> <json>",
		Short: "set one field of a record and commit",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			value, err := model.ParseValue([]byte(args[3]))
			if err != nil {
				return errors.Wrap(err, errors.Validation, "invalid value for %s", args[2])
			}
			return c.withStore(cmd.Context(), func(s *gamedb.Store) error {
				if err := s.Update(args[0], id, args[2], value); err != nil {
					return err
				}
				return s.CommitChanges(cmd.Context(), true)
			})
		},
	}
}

func (c *cli) insertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <collection> <id> <json-object>",
		Short: "insert a record and commit",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			doc, err := model.ParseDocument([]byte(args[2]))
			if err != nil {
				return errors.Wrap(err, errors.Validation, "invalid document")
			}
			return c.withStore(cmd.Context(), func(s *gamedb.Store) error {
				if err := s.Insert(args[0], id, doc); err != nil {
					return err
				}
				return s.CommitChanges(cmd.Context(), true)
			})
		},
	}
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "delete a record and commit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			return c.withStore(cmd.Context(), func(s *gamedb.Store) error {
				doc, err := s.Get(cmd.Context(), args[0], id)
				if err != nil {
					return err
				}
				if doc.Empty() {
					return errors.New(errors.NotFound, "%s/%d does not exist", args[0], id)
				}
				if err := s.Delete(args[0], id); err != nil {
					return err
				}
				return s.CommitChanges(cmd.Context(), true)
			})
		},
	}
}

func (c *cli) copyCmd() *cobra.Command {
	var (
		collections []string
		batch       int
	)
	cmd := &cobra.Command{
		Use:   "copy <target-connection>",
		Short: "copy every record of the given collections into another backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(collections) == 0 {
				return errors.New(errors.Validation, "at least one --collection is required")
			}
			if batch < 1 {
				return errors.New(errors.Validation, "--batch must be positive")
			}
			ctx := cmd.Context()
			return c.withStore(ctx, func(s *gamedb.Store) error {
				cfg, err := c.config()
				if err != nil {
					return err
				}
				cfg.Connection = args[0]
				target, err := gamedb.Open(ctx, cfg)
				if err != nil {
					return err
				}
				copyErr := copyCollections(cmd, s, target, collections, batch)
				if err := target.Close(ctx); err != nil && copyErr == nil {
					copyErr = err
				}
				return copyErr
			})
		},
	}
	cmd.Flags().StringSliceVar(&collections, "collection", nil, "collection to copy (repeatable)")
	cmd.Flags().IntVar(&batch, "batch", 500, "records per commit")
	return cmd
}

// copyCollections inserts every source record missing from the target and overwrites the fields of the ones
// it already holds
func copyCollections(cmd *cobra.Command, source, target *gamedb.Store, collections []string, batch int) error {
	ctx := cmd.Context()
	for _, collection := range collections {
		ids, err := source.GetAllIDs(ctx, collection)
		if err != nil {
			return err
		}
		for i, id := range ids {
			doc, err := source.Get(ctx, collection, id)
			if err != nil {
				return err
			}
			existing, err := target.Get(ctx, collection, id)
			if err != nil {
				return err
			}
			if existing.Empty() {
				err = target.Insert(collection, id, doc)
			} else {
				for _, field := range doc.Keys() {
					if err = target.Update(collection, id, field, doc[field]); err != nil {
						break
					}
				}
			}
			if err != nil {
				return err
			}
			if (i+1)%batch == 0 {
				if err := target.CommitChanges(ctx, false); err != nil {
					return err
				}
			}
		}
		if err := target.CommitChanges(ctx, true); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "copied %d records from %s\n", len(ids), collection)
	}
	return nil
}

func kindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "list the supported backends and their connection strings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, kind := range registry.Kinds() {
				fmt.Fprintln(cmd.OutOrStdout(), registry.Usage(kind))
			}
			return nil
		},
	}
}
