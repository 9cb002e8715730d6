package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	cmdCommon "github.com/warpdl/recognition/cmd/common"
	"github.com/warpdl/recognition/internal/gallery"
)

var (
	peopleCategory string
	validateData   string
	validateJSON   bool

	peopleFlags = withClientFlags(
		cli.StringFlag{
			Name:        "category, c",
			Usage:       "only list people in this category",
			Destination: &peopleCategory,
		},
	)

	validateFlags = withClientFlags(
		cli.StringFlag{
			Name:        "data, d",
			Usage:       "validate this people.json instead of asking the daemon",
			Destination: &validateData,
		},
		cli.BoolFlag{
			Name:        "json",
			Usage:       "print the report as JSON",
			Destination: &validateJSON,
		},
	)
)

// newFs is the filesystem local commands read from.
var newFs = afero.NewOsFs

func people(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	category := gallery.Category(peopleCategory)
	if category != "" && !category.Valid() {
		cmdCommon.PrintRuntimeErr(ctx, "people", "category", fmt.Errorf("unknown category %q", peopleCategory))
		return nil
	}
	client, err := getClient()
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "people", "new_client", err)
		return nil
	}
	defer client.Close()
	rctx, cancel := rpcContext()
	defer cancel()
	res, err := client.People(rctx, category)
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "people", "list", err)
		return nil
	}
	w := cmdCommon.Out(ctx)
	if len(res.People) == 0 {
		fmt.Fprintln(w, "recognition: no people found")
		return nil
	}
	fmt.Fprintf(w, "%-16s %-28s %s\n", "ID", "NAME", "CATEGORY")
	for _, p := range res.People {
		fmt.Fprintf(w, "%-16s %-28s %s\n", p.ID, p.Name, p.Category)
	}
	return nil
}

func person(ctx *cli.Context) error {
	id := ctx.Args().First()
	if id == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	if id == "" {
		return cmdCommon.PrintErrWithCmdHelp(ctx, fmt.Errorf("missing person id"))
	}
	client, err := getClient()
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "person", "new_client", err)
		return nil
	}
	defer client.Close()
	rctx, cancel := rpcContext()
	defer cancel()
	res, err := client.Person(rctx, id)
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "person", "get", err)
		return nil
	}
	w := cmdCommon.Out(ctx)
	p := res.Person
	fmt.Fprintf(w, "%s (%s)\n", p.Name, p.Category)
	if p.Description != "" {
		fmt.Fprintf(w, "%s\n", p.Description)
	}
	img := res.Image
	switch img.Kind {
	case gallery.ImagePlaceholder:
		fmt.Fprintf(w, "Image: placeholder %q\n", img.Placeholder)
	case gallery.ImageCroppedGroup:
		fmt.Fprintf(w, "Image: %s (size %s, position %s)\n", img.Src, img.BackgroundSize, img.BackgroundPosition)
	default:
		fmt.Fprintf(w, "Image: %s\n", img.Src)
	}
	if len(res.Photos) > 0 {
		names := make([]string, len(res.Photos))
		for i, ph := range res.Photos {
			names[i] = ph.Name
		}
		fmt.Fprintf(w, "Photos: %s\n", strings.Join(names, ", "))
	}
	return nil
}

func validate(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	var rep gallery.Report
	if validateData != "" {
		store, err := gallery.Load(newFs(), validateData)
		if err != nil {
			cmdCommon.PrintRuntimeErr(ctx, "validate", "load", err)
			return nil
		}
		rep = gallery.Validate(store.Data())
	} else {
		client, err := getClient()
		if err != nil {
			cmdCommon.PrintRuntimeErr(ctx, "validate", "new_client", err)
			return nil
		}
		defer client.Close()
		rctx, cancel := rpcContext()
		defer cancel()
		r, err := client.Validate(rctx)
		if err != nil {
			cmdCommon.PrintRuntimeErr(ctx, "validate", "report", err)
			return nil
		}
		rep = *r
	}

	w := cmdCommon.Out(ctx)
	if validateJSON {
		b, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
	} else {
		printReport(w, rep)
	}
	if !rep.OK() {
		return fmt.Errorf("people data has %d issue(s)", len(rep.Issues))
	}
	return nil
}

func printReport(w io.Writer, rep gallery.Report) {
	st := rep.Stats
	fmt.Fprintf(w, "People: %d (%d hidden, %d with an individual photo)\n", st.People, st.Hidden, st.WithIndividual)
	fmt.Fprintf(w, "Group photos: %d\n", st.GroupPhotos)
	for _, c := range gallery.Categories {
		if n := st.ByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c, n)
		}
	}
	fmt.Fprintf(w, "In a group photo: %d, in no photo: %d\n", st.InGroupPhotos, st.NotInAnyPicture)
	if rep.OK() {
		fmt.Fprintln(w, "No issues found")
		return
	}
	fmt.Fprintf(w, "%d issue(s):\n", len(rep.Issues))
	for _, is := range rep.Issues {
		fmt.Fprintf(w, "  %s\n", is)
	}
}
