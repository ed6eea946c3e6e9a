package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/lox/toptrumps/cmd/toptrumps/shared"
)

// DecksCmd lists every deck in the catalog
type DecksCmd struct {
	Files []string `arg:"" optional:"" type:"existingfile" help:"Extra HCL deck files"`
	Cards bool     `help:"List the cards of each deck"`
}

func (c *DecksCmd) Run() error {
	catalog, err := shared.LoadCatalog(c.Files...)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCARDS\tCATEGORIES")
	for _, d := range catalog.Decks() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", d.ID, d.Name, len(d.Cards), strings.Join(d.Categories, ", "))
		if c.Cards {
			for _, card := range d.Cards {
				fmt.Fprintf(w, "\t  %s\t%s\t\n", card.ID, card.Name)
			}
		}
	}
	return w.Flush()
}
