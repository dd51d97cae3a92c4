// Command chemked converts between ChemKED YAML and ReSpecTh XML records,
// choosing the direction from the input file extension.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"github.com/chemked/chemked"
	"github.com/chemked/chemked/crossref"
	"github.com/chemked/chemked/orcid"
	"github.com/chemked/chemked/respecth"
	"github.com/chemked/chemked/schema"
)

var cli struct {
	Convert  ConvertCmd  `cmd:"" help:"Convert a record between ChemKED YAML and ReSpecTh XML."`
	Validate ValidateCmd `cmd:"" help:"Validate a ChemKED YAML record."`
}

// ConvertCmd converts one record, direction chosen by input extension.
type ConvertCmd struct {
	Input           string `short:"i" required:"" type:"existingfile" help:"Input file (.yaml, .yml, or .xml)."`
	Output          string `short:"o" help:"Output file; defaults to the input with the extension swapped."`
	FileAuthor      string `name:"file-author" help:"File author name to add to the converted record."`
	FileAuthorORCID string `name:"file-author-orcid" help:"ORCID of the added file author."`
	Offline         bool   `help:"Skip registry lookups (ORCID, Crossref)."`
}

func (c *ConvertCmd) Run() error {
	people, works := registries(c.Offline)
	switch strings.ToLower(filepath.Ext(c.Input)) {
	case ".xml":
		return c.toYAML(people, works)
	case ".yaml", ".yml":
		return c.toXML(people, works)
	default:
		return fmt.Errorf("cannot determine conversion direction from %q; expected a .yaml, .yml, or .xml input", c.Input)
	}
}

func (c *ConvertCmd) toYAML(people orcid.Lookup, works crossref.Lookup) error {
	opts := []respecth.Option{
		respecth.WithORCIDClient(people),
		respecth.WithCrossrefClient(works),
	}
	if c.FileAuthor != "" || c.FileAuthorORCID != "" {
		opts = append(opts, respecth.WithFileAuthor(c.FileAuthor, c.FileAuthorORCID))
	}
	props, warns, err := respecth.ParseFile(c.Input, opts...)
	if err != nil {
		return err
	}
	printWarnings(warns)

	record, err := chemked.New(props,
		chemked.WithORCIDClient(people),
		chemked.WithCrossrefClient(works))
	if err != nil {
		return err
	}
	printWarnings(record.Warnings)

	out, err := yaml.Marshal(props)
	if err != nil {
		return err
	}
	dst := c.dst(".yaml")
	if err := os.WriteFile(dst, out, 0o644); err != nil {
		return err
	}
	fmt.Println("Converted to " + dst)
	return nil
}

func (c *ConvertCmd) toXML(people orcid.Lookup, works crossref.Lookup) error {
	record, err := chemked.LoadFile(c.Input,
		chemked.WithORCIDClient(people),
		chemked.WithCrossrefClient(works))
	if err != nil {
		return err
	}
	printWarnings(record.Warnings)

	if c.FileAuthor == "" && c.FileAuthorORCID != "" {
		return fmt.Errorf("--file-author-orcid requires --file-author")
	}
	if c.FileAuthor != "" {
		record.FileAuthors = append(record.FileAuthors, chemked.Author{
			Name:  c.FileAuthor,
			ORCID: c.FileAuthorORCID,
		})
	}

	dst := c.dst(".xml")
	warns, err := respecth.WriteFile(record, dst)
	if err != nil {
		return err
	}
	printWarnings(warns)
	fmt.Println("Converted to " + dst)
	return nil
}

func (c *ConvertCmd) dst(ext string) string {
	if c.Output != "" {
		return c.Output
	}
	return strings.TrimSuffix(c.Input, filepath.Ext(c.Input)) + ext
}

// ValidateCmd validates a record and reports every issue at once.
type ValidateCmd struct {
	Input   string `arg:"" type:"existingfile" help:"ChemKED YAML file to validate."`
	Offline bool   `help:"Skip registry lookups (ORCID, Crossref)."`
}

func (v *ValidateCmd) Run() error {
	people, works := registries(v.Offline)
	record, err := chemked.LoadFile(v.Input,
		chemked.WithORCIDClient(people),
		chemked.WithCrossrefClient(works))
	if err != nil {
		if iss, ok := chemked.AsIssues(err); ok {
			for _, it := range iss {
				fmt.Fprintf(os.Stderr, "%s: %s: %s\n", it.Path, it.Code, it.Message)
			}
			return fmt.Errorf("%d validation issues", len(iss))
		}
		return err
	}
	printWarnings(record.Warnings)
	fmt.Println(v.Input + " is valid")
	return nil
}

func registries(offline bool) (orcid.Lookup, crossref.Lookup) {
	if offline {
		return orcid.Offline{}, crossref.Offline{}
	}
	return &orcid.Client{}, &crossref.Client{}
}

func printWarnings(warns schema.Warnings) {
	for _, w := range warns {
		if w.Path != "" {
			fmt.Fprintf(os.Stderr, "warning: %s: %s\n", w.Path, w.Message)
		} else {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w.Message)
		}
	}
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("chemked"),
		kong.Description("ChemKED combustion-kinetics record tool"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
