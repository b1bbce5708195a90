package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mroshb/chunkclaim/internal/claims"
	"github.com/mroshb/chunkclaim/internal/importer"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"check":       runCheck,
	"setting":     runSetting,
	"owner":       runOwner,
	"claim":       runClaim,
	"unclaim":     runUnclaim,
	"near":        runNear,
	"town-create": runTownCreate,
	"town-add":    runTownAdd,
	"town-leave":  runTownLeave,
	"import":      runImport,
	"export":      runExport,
}

type chunkFlags struct {
	world, x, z int
}

func (c *chunkFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&c.world, "world", 0, "world id")
	fs.IntVar(&c.x, "x", 0, "chunk x")
	fs.IntVar(&c.z, "z", 0, "chunk z")
}

func (c chunkFlags) key() claims.ChunkKey {
	return claims.ChunkKey{World: c.world, X: c.x, Z: c.z}
}

func parseID(name, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("-%s: %w", name, err)
	}
	return id, nil
}

func runCheck(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	var chunk chunkFlags
	chunk.register(fs)
	player := fs.String("player", "", "player uuid")
	perm := fs.String("perm", string(claims.PermBuild), "permission")
	if err := fs.Parse(args); err != nil {
		return err
	}
	actor, err := parseID("player", *player)
	if err != nil {
		return err
	}
	p := claims.Permission(strings.ToUpper(*perm))
	if !p.Valid() {
		return fmt.Errorf("unknown permission %q", *perm)
	}

	allowed := a.claims.OnPlayerAction(ctx, actor, chunk.world, chunk.x, chunk.z, p)
	fmt.Printf("%s %s in %s: %t\n", actor, p, chunk.key(), allowed)
	return nil
}

func runSetting(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("setting", flag.ContinueOnError)
	var chunk chunkFlags
	chunk.register(fs)
	name := fs.String("setting", string(claims.SettingExplosions), "setting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s := claims.Setting(strings.ToUpper(*name))
	if !s.Valid() {
		return fmt.Errorf("unknown setting %q", *name)
	}
	fmt.Printf("%s in %s: %t\n", s, chunk.key(), a.claims.IsSettingEnabled(ctx, chunk.world, chunk.x, chunk.z, s))
	return nil
}

func runOwner(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("owner", flag.ContinueOnError)
	var chunk chunkFlags
	chunk.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	fmt.Println(a.claims.OwnerName(ctx, chunk.key()))
	return nil
}

func runClaim(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("claim", flag.ContinueOnError)
	var chunk chunkFlags
	chunk.register(fs)
	player := fs.String("player", "", "player uuid")
	if err := fs.Parse(args); err != nil {
		return err
	}
	actor, err := parseID("player", *player)
	if err != nil {
		return err
	}

	c, err := a.claims.ClaimChunk(ctx, actor, chunk.key())
	if err != nil {
		return err
	}
	fmt.Printf("claimed %s for %s\n", c.Key(), c.OwnerName(ctx))
	return nil
}

func runUnclaim(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("unclaim", flag.ContinueOnError)
	var chunk chunkFlags
	chunk.register(fs)
	player := fs.String("player", "", "player uuid")
	if err := fs.Parse(args); err != nil {
		return err
	}
	actor, err := parseID("player", *player)
	if err != nil {
		return err
	}

	if err := a.claims.UnclaimChunk(ctx, actor, chunk.key()); err != nil {
		return err
	}
	fmt.Printf("unclaimed %s\n", chunk.key())
	return nil
}

func runNear(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("near", flag.ContinueOnError)
	world := fs.Int("world", 0, "world id")
	x := fs.Int("x", 0, "block x")
	y := fs.Int("y", 64, "block y")
	z := fs.Int("z", 0, "block z")
	radius := fs.Int("radius", 2, "radius in chunks")
	if err := fs.Parse(args); err != nil {
		return err
	}

	found, err := a.claims.FindClaimsNear(ctx, *world, claims.BlockPos{X: *x, Y: *y, Z: *z}, *radius)
	if err != nil {
		return err
	}
	for _, c := range found {
		origin := c.BlockOrigin()
		fmt.Printf("%s\t%d,%d\t%s\n", c.Key(), origin.X, origin.Z, c.OwnerName(ctx))
	}
	fmt.Printf("%d claims\n", len(found))
	return nil
}

func runTownCreate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("town-create", flag.ContinueOnError)
	player := fs.String("player", "", "founder uuid")
	name := fs.String("name", "", "town name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	founder, err := parseID("player", *player)
	if err != nil {
		return err
	}

	town, err := a.towns.CreateTown(ctx, founder, *name)
	if err != nil {
		return err
	}
	fmt.Printf("created town %s (%s)\n", town.Name(), town.ID())
	return nil
}

func runTownAdd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("town-add", flag.ContinueOnError)
	player := fs.String("player", "", "acting player uuid")
	town := fs.String("town", "", "town uuid")
	member := fs.String("member", "", "new member uuid")
	if err := fs.Parse(args); err != nil {
		return err
	}
	actor, err := parseID("player", *player)
	if err != nil {
		return err
	}
	townID, err := parseID("town", *town)
	if err != nil {
		return err
	}
	memberID, err := parseID("member", *member)
	if err != nil {
		return err
	}

	if err := a.towns.AddMember(ctx, actor, townID, memberID); err != nil {
		return err
	}
	fmt.Printf("added %s to %s\n", memberID, townID)
	return nil
}

func runTownLeave(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("town-leave", flag.ContinueOnError)
	player := fs.String("player", "", "player uuid")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID("player", *player)
	if err != nil {
		return err
	}
	return a.towns.LeaveTown(ctx, id)
}

func runImport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	file := fs.String("file", "", "xlsx workbook")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	res, err := importer.ImportClaims(ctx, *file, a.gateway)
	if err != nil {
		return err
	}
	// cached chunks may now be stale
	a.session.Reset()
	fmt.Printf("imported %d claims, skipped %d rows\n", res.Imported, res.Skipped)
	return nil
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	file := fs.String("file", "claims.xlsx", "output workbook")
	world := fs.Int("world", 0, "world id")
	x := fs.Int("x", 0, "centre chunk x")
	z := fs.Int("z", 0, "centre chunk z")
	radius := fs.Int("radius", 64, "radius in chunks")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *radius < 0 {
		return fmt.Errorf("-radius must not be negative")
	}

	n, err := importer.ExportClaims(ctx, *file, a.gateway, *world, claims.SpanAround(*x, *radius), claims.SpanAround(*z, *radius))
	if err != nil {
		return err
	}
	fmt.Printf("exported %d claims to %s\n", n, *file)
	return nil
}
