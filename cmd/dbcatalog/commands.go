package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/dbcatalog/internal/config"
	"github.com/sadopc/dbcatalog/internal/dialect"
	"github.com/sadopc/dbcatalog/internal/history"
)

func (c *cli) schema() string {
	return c.v.GetString("schema")
}

func (c *cli) qualified(table string) string {
	if s := c.schema(); s != "" {
		return s + "." + table
	}
	return table
}

func (c *cli) featuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Show which catalog features the dialect supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := c.client()
			if err != nil {
				return err
			}
			return c.out.Features(cl.SupportedFeatures())
		},
	}
}

func (c *cli) indexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes TABLE",
		Short: "List the indexes of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), "indexes", c.qualified(args[0]), func(ctx context.Context, cl *dialect.Client) (int, error) {
				indexes, err := cl.ListTableIndexes(ctx, cl.DatabaseName(), args[0], c.schema())
				if err != nil {
					return 0, err
				}
				return len(indexes), c.out.Indexes(indexes)
			})
		},
	}
}

func (c *cli) triggersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "triggers TABLE",
		Short: "List the triggers of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), "triggers", c.qualified(args[0]), func(ctx context.Context, cl *dialect.Client) (int, error) {
				triggers, err := cl.ListTableTriggers(ctx, args[0], c.schema())
				if err != nil {
					return 0, err
				}
				return len(triggers), c.out.Triggers(triggers)
			})
		},
	}
}

func (c *cli) partitionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "partitions TABLE",
		Short: "List the partitions of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), "partitions", c.qualified(args[0]), func(ctx context.Context, cl *dialect.Client) (int, error) {
				parts, err := cl.ListTablePartitions(ctx, args[0], c.schema())
				if err != nil {
					return 0, err
				}
				return len(parts.Items()), c.out.Partitions(parts)
			})
		},
	}
}

func (c *cli) keysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys TABLE",
		Short: "List the foreign keys of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), "keys", c.qualified(args[0]), func(ctx context.Context, cl *dialect.Client) (int, error) {
				keys, err := cl.TableKeys(ctx, cl.DatabaseName(), args[0], c.schema())
				if err != nil {
					return 0, err
				}
				return len(keys), c.out.Keys(keys)
			})
		},
	}
}

func (c *cli) propertiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "properties TABLE",
		Short: "Show size, owner, indexes, keys, triggers and partitions of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), "properties", c.qualified(args[0]), func(ctx context.Context, cl *dialect.Client) (int, error) {
				props, err := cl.GetTableProperties(ctx, args[0], c.schema())
				if err != nil {
					return 0, err
				}
				return 1, c.out.Properties(props)
			})
		},
	}
}

func (c *cli) typesCmd() *cobra.Command {
	var oid uint32
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the type OID registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), "types", "", func(ctx context.Context, cl *dialect.Client) (int, error) {
				if cmd.Flags().Changed("oid") {
					name, err := cl.ResolveType(ctx, oid)
					if err != nil {
						return 0, err
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), name)
					return 1, err
				}
				types, err := cl.GetTypes(ctx)
				if err != nil {
					return 0, err
				}
				return len(types), c.out.Types(types)
			})
		},
	}
	cmd.Flags().Uint32Var(&oid, "oid", 0, "Resolve a single type OID")
	return cmd
}

func (c *cli) poolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pool",
		Short: "Show the connection pool configuration without connecting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := c.client()
			if err != nil {
				return err
			}
			return c.out.Pool(cl.ConfigureConnection())
		},
	}
}

func (c *cli) dialectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the supported dialects and their features",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := dialect.Names()
			ds := make([]*dialect.Descriptor, 0, len(names))
			for _, name := range names {
				d, err := dialect.Lookup(name)
				if err != nil {
					return err
				}
				ds = append(ds, d)
			}
			return c.out.Dialects(ds)
		},
	}
}

func (c *cli) serversCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "List the servers in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.out.Servers(c.cfg.Servers)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set-password NAME",
		Short: "Store a server's password in the OS keyring (read from stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := c.cfg.Server(args[0])
			if err != nil {
				return err
			}
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			password := strings.TrimRight(line, "\r\n")
			if password == "" {
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				return errors.New("empty password")
			}
			if err := server.StorePassword(password); err != nil {
				return err
			}
			return c.out.Success(fmt.Sprintf("password for %s stored in keyring", server.Name))
		},
	})
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var (
		limit    int
		clearAll bool
	)
	cmd := &cobra.Command{
		Use:   "history [PATTERN]",
		Short: "Show recent introspection runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.hist == nil {
				return errors.New("history is disabled")
			}
			if clearAll {
				return c.hist.Clear()
			}

			var (
				entries []history.Entry
				err     error
			)
			if len(args) == 1 {
				pattern := args[0]
				if !strings.ContainsAny(pattern, "%_") {
					pattern = "%" + pattern + "%"
				}
				entries, err = c.hist.Search(pattern, limit)
			} else {
				entries, err = c.hist.Recent(limit)
			}
			if err != nil {
				return err
			}
			return c.out.History(entries)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all history")
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the current configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			if err := c.cfg.Save(path); err != nil {
				return err
			}
			return c.out.Success("wrote " + path)
		},
	})
	return cmd
}

func configPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}
