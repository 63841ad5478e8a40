package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	rotationservice "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/application"
	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	"github.com/urfave/cli/v2"
)

var errUsage = errors.New("wrong number of arguments")

func kindArg(cc *cli.Context, i int) (rotationdomain.Kind, error) {
	return rotationdomain.ParseKind(cc.Args().Get(i))
}

func idArg(cc *cli.Context, i int) (int64, error) {
	raw := cc.Args().Get(i)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func need(cc *cli.Context, n int) error {
	if cc.NArg() < n {
		return fmt.Errorf("%w: %s %s", errUsage, cc.Command.Name, cc.Command.ArgsUsage)
	}
	return nil
}

func commands(c *ctl) []*cli.Command {
	return []*cli.Command{
		{
			Name:      "status",
			Usage:     "show the eligible set, holder and stats",
			ArgsUsage: "<mvp|winner>",
			Action: func(cc *cli.Context) error {
				kind, err := kindArg(cc, 0)
				if err != nil {
					return err
				}
				return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
					return c.service.RotationStatus(ctx, store, kind)
				})
			},
		},
		{
			Name:      "assign",
			Usage:     "give the award for an event to an eligible participant",
			ArgsUsage: "<mvp|winner> <participant-id> <event-id>",
			Action: func(cc *cli.Context) error {
				if err := need(cc, 3); err != nil {
					return err
				}
				kind, err := kindArg(cc, 0)
				if err != nil {
					return err
				}
				participantID, err := idArg(cc, 1)
				if err != nil {
					return err
				}
				eventID, err := idArg(cc, 2)
				if err != nil {
					return err
				}
				return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
					return c.service.Assign(ctx, store, kind, participantID, eventID)
				})
			},
		},
		{
			Name:      "unassign",
			Usage:     "revert one assignment",
			ArgsUsage: "<mvp|winner> <assignment-id>",
			Action: func(cc *cli.Context) error {
				if err := need(cc, 2); err != nil {
					return err
				}
				kind, err := kindArg(cc, 0)
				if err != nil {
					return err
				}
				id, err := idArg(cc, 1)
				if err != nil {
					return err
				}
				return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
					return c.service.Unassign(ctx, store, kind, id)
				})
			},
		},
		{
			Name:      "history",
			Usage:     "list a participant's assignments",
			ArgsUsage: "<mvp|winner> <participant-id>",
			Flags:     []cli.Flag{&cli.IntFlag{Name: "limit", Usage: "maximum entries, 0 for all"}},
			Action: func(cc *cli.Context) error {
				if err := need(cc, 2); err != nil {
					return err
				}
				kind, err := kindArg(cc, 0)
				if err != nil {
					return err
				}
				id, err := idArg(cc, 1)
				if err != nil {
					return err
				}
				return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
					return c.service.History(ctx, store, kind, id, cc.Int("limit"))
				})
			},
		},
		participantsCommand(c),
		eventsCommand(c),
		maintenanceCommand(c),
		tenantsCommand(c),
	}
}

func participantsCommand(c *ctl) *cli.Command {
	return &cli.Command{
		Name:    "participants",
		Aliases: []string{"p"},
		Usage:   "manage players and alliances",
		Subcommands: []*cli.Command{
			{
				Name:      "list",
				ArgsUsage: "<mvp|winner>",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "active", Usage: "hide excluded players"}},
				Action: func(cc *cli.Context) error {
					kind, err := kindArg(cc, 0)
					if err != nil {
						return err
					}
					return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
						return c.service.ListParticipants(ctx, store, kind, !cc.Bool("active"))
					})
				},
			},
			{
				Name:      "add",
				ArgsUsage: "<mvp|winner> <name...>",
				Action: func(cc *cli.Context) error {
					if err := need(cc, 2); err != nil {
						return err
					}
					kind, err := kindArg(cc, 0)
					if err != nil {
						return err
					}
					name := strings.Join(cc.Args().Tail(), " ")
					return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
						return c.service.CreateParticipant(ctx, store, kind, name)
					})
				},
			},
			{
				Name:      "rename",
				ArgsUsage: "<mvp|winner> <id> <name...>",
				Action: func(cc *cli.Context) error {
					if err := need(cc, 3); err != nil {
						return err
					}
					kind, err := kindArg(cc, 0)
					if err != nil {
						return err
					}
					id, err := idArg(cc, 1)
					if err != nil {
						return err
					}
					name := strings.Join(cc.Args().Slice()[2:], " ")
					return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
						return c.service.RenameParticipant(ctx, store, kind, id, name)
					})
				},
			},
			{
				Name:      "remove",
				ArgsUsage: "<mvp|winner> <id>",
				Action: func(cc *cli.Context) error {
					if err := need(cc, 2); err != nil {
						return err
					}
					kind, err := kindArg(cc, 0)
					if err != nil {
						return err
					}
					id, err := idArg(cc, 1)
					if err != nil {
						return err
					}
					return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
						return nil, c.service.DeleteParticipant(ctx, store, kind, id)
					})
				},
			},
			exclusionCommand(c, "exclude", true),
			exclusionCommand(c, "include", false),
		},
	}
}

func exclusionCommand(c *ctl, name string, excluded bool) *cli.Command {
	return &cli.Command{
		Name:      name,
		ArgsUsage: "<player-id>",
		Action: func(cc *cli.Context) error {
			if err := need(cc, 1); err != nil {
				return err
			}
			id, err := idArg(cc, 0)
			if err != nil {
				return err
			}
			return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
				return c.service.SetExcluded(ctx, store, rotationdomain.KindMVP, id, excluded)
			})
		},
	}
}

func eventInput(c *ctl, cc *cli.Context, name string) (rotationservice.EventInput, error) {
	in := rotationservice.EventInput{Name: name}
	date, err := c.dates.Parse(cc.String("date"), cc.String("tz"), time.Now())
	if err != nil {
		return in, err
	}
	in.EventDate = date
	if cc.IsSet("description") {
		d := cc.String("description")
		in.Description = &d
	}
	return in, nil
}

func eventsCommand(c *ctl) *cli.Command {
	eventFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "date", Usage: `event date, e.g. "2026-09-30", "yesterday", "last friday 7pm"`},
			&cli.StringFlag{Name: "description", Usage: "free-form description"},
		}
	}
	return &cli.Command{
		Name:    "events",
		Aliases: []string{"e"},
		Usage:   "manage events",
		Subcommands: []*cli.Command{
			{
				Name: "list",
				Action: func(cc *cli.Context) error {
					return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
						return c.service.ListEvents(ctx, store)
					})
				},
			},
			{
				Name:      "show",
				ArgsUsage: "<id>",
				Action: func(cc *cli.Context) error {
					id, err := idArg(cc, 0)
					if err != nil {
						return err
					}
					return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
						return c.service.GetEvent(ctx, store, id)
					})
				},
			},
			{
				Name:      "add",
				ArgsUsage: "<name...>",
				Flags:     eventFlags(),
				Action: func(cc *cli.Context) error {
					if err := need(cc, 1); err != nil {
						return err
					}
					in, err := eventInput(c, cc, strings.Join(cc.Args().Slice(), " "))
					if err != nil {
						return err
					}
					return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
						return c.service.CreateEvent(ctx, store, in)
					})
				},
			},
			{
				Name:      "edit",
				ArgsUsage: "<id> <name...>",
				Flags:     eventFlags(),
				Action: func(cc *cli.Context) error {
					if err := need(cc, 2); err != nil {
						return err
					}
					id, err := idArg(cc, 0)
					if err != nil {
						return err
					}
					in, err := eventInput(c, cc, strings.Join(cc.Args().Tail(), " "))
					if err != nil {
						return err
					}
					return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
						return c.service.UpdateEvent(ctx, store, id, in)
					})
				},
			},
			{
				Name:      "remove",
				ArgsUsage: "<id>",
				Usage:     "delete an event and undo its assignments",
				Action: func(cc *cli.Context) error {
					id, err := idArg(cc, 0)
					if err != nil {
						return err
					}
					return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
						return c.service.DeleteEvent(ctx, store, id)
					})
				},
			},
		},
	}
}

func maintenanceCommand(c *ctl) *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "ledger maintenance",
		Subcommands: []*cli.Command{
			{
				Name:      "verify",
				ArgsUsage: "<mvp|winner>",
				Action: func(cc *cli.Context) error {
					kind, err := kindArg(cc, 0)
					if err != nil {
						return err
					}
					return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
						report, err := c.service.VerifyLedger(ctx, store, kind)
						if err != nil && !errors.Is(err, rotationservice.ErrInvariantViolation) {
							return nil, err
						}
						if perr := c.print(report); perr != nil {
							return nil, perr
						}
						return nil, err
					})
				},
			},
			{
				Name:      "rebuild",
				ArgsUsage: "<mvp|winner>",
				Action: func(cc *cli.Context) error {
					kind, err := kindArg(cc, 0)
					if err != nil {
						return err
					}
					return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
						return c.service.RebuildProjections(ctx, store, kind)
					})
				},
			},
			{
				Name:      "reset",
				ArgsUsage: "<mvp|winner>",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "yes", Usage: "confirm the reset"}},
				Action: func(cc *cli.Context) error {
					kind, err := kindArg(cc, 0)
					if err != nil {
						return err
					}
					if !cc.Bool("yes") {
						return fmt.Errorf("reset deletes the %s ledger; pass --yes to confirm", kind)
					}
					return c.run(cc, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
						removed, err := c.service.ResetRotation(ctx, store, kind)
						if err != nil {
							return nil, err
						}
						return map[string]int{"removed": removed}, nil
					})
				},
			},
		},
	}
}

func tenantsCommand(c *ctl) *cli.Command {
	return &cli.Command{
		Name:  "tenants",
		Usage: "tenant lifecycle",
		Subcommands: []*cli.Command{
			{
				Name: "list",
				Action: func(cc *cli.Context) error {
					tenants, err := c.registry.List(cc.Context)
					if err != nil {
						return err
					}
					return c.print(tenants)
				},
			},
			{
				Name:      "provision",
				ArgsUsage: "<tenant-id>",
				Action: func(cc *cli.Context) error {
					store, err := c.registry.Provision(cc.Context, cc.Args().First())
					if err != nil {
						return err
					}
					if err := c.print(map[string]string{"tenant_id": store.TenantID(), "store_path": store.Path()}); err != nil {
						_ = store.Close()
						return err
					}
					return store.Close()
				},
			},
			{
				Name:      "delete",
				ArgsUsage: "<tenant-id>",
				Action: func(cc *cli.Context) error {
					return c.registry.Delete(cc.Context, cc.Args().First())
				},
			},
		},
	}
}
