package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"CrudAPI/internal/adapter/prisma"
	"CrudAPI/internal/logger"
	"CrudAPI/internal/model"
	"CrudAPI/internal/query"
	"CrudAPI/internal/route"
	"CrudAPI/internal/store/pgstore"
)

// TranslateOptions holds the translate flags.
type TranslateOptions struct {
	Method       string
	Resource     string
	Many         string
	ResourcesDir string
	MaxDepth     int
}

// TranslateResult is what translate prints.
type TranslateResult struct {
	Resource string        `json:"resource"`
	Route    route.Route   `json:"route"`
	Parsed   parsedOutput  `json:"parsed"`
	Query    *prisma.Query `json:"query"`
	SQL      string        `json:"sql,omitempty"`
	Args     []any         `json:"args,omitempty"`
}

type parsedOutput struct {
	Select   query.RecursiveField `json:"select,omitempty"`
	Include  query.RecursiveField `json:"include,omitempty"`
	Where    query.WhereField     `json:"where,omitempty"`
	OrderBy  query.OrderByField   `json:"orderBy,omitempty"`
	Limit    *int                 `json:"limit,omitempty"`
	Skip     *int                 `json:"skip,omitempty"`
	Distinct string               `json:"distinct,omitempty"`
	Page     *int                 `json:"page,omitempty"`
	Cursor   string               `json:"cursor,omitempty"`
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TranslateOptions{}
	cmd := &cobra.Command{
		Use:   "translate <url>",
		Short: "Show how a request URL is classified, parsed and translated",
		Long: `Classify a request URL, parse its query string and print the
translated backend query as JSON. With --resources the query is also
compiled to SQL against the resource definitions; no database is used.`,
		Example: `  crudapi translate --resource users --many posts,posts.comments '/api/users?where={"posts.title":{"$cont":"go"}}'
  crudapi translate --resources ./resources '/api/users/1?select=name,posts'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.SetDebug(rootOpts.Debug)
			res, err := runTranslate(opts, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&opts.Method, "method", "X", "GET", "HTTP method of the request")
	cmd.Flags().StringVar(&opts.Resource, "resource", "", "resource name (detected from the URL with --resources)")
	cmd.Flags().StringVar(&opts.Many, "many", "", "comma separated to-many relation paths")
	cmd.Flags().StringVar(&opts.ResourcesDir, "resources", "", "resources directory; enables SQL output")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", 3, "relation depth for derived to-many paths")
	return cmd
}

func runTranslate(opts *TranslateOptions, rawURL string) (*TranslateResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	var (
		store *pgstore.Store
		names []string
	)
	if opts.ResourcesDir != "" {
		reg, err := model.InitRegistry(opts.ResourcesDir)
		if err != nil {
			return nil, err
		}
		store = pgstore.New(nil, reg, opts.MaxDepth)
		names = store.Resources()
	}

	resource := opts.Resource
	if resource == "" {
		var ok bool
		if resource, ok = route.ResourceFromURL(u.Path, names); !ok {
			return nil, errors.New("no resource: pass --resource or --resources")
		}
	}

	rt, err := route.Classify(opts.Method, u.Path, resource)
	if err != nil {
		return nil, err
	}
	parsed, err := query.Parse(u.RawQuery)
	if err != nil {
		return nil, err
	}

	out := &TranslateResult{
		Resource: resource,
		Route:    rt,
		Parsed: parsedOutput{
			Select:   parsed.Select,
			Include:  parsed.Include,
			Where:    parsed.Where,
			OrderBy:  parsed.OrderBy,
			Limit:    parsed.Limit,
			Skip:     parsed.Skip,
			Distinct: parsed.Distinct,
			Page:     parsed.Page,
			Cursor:   parsed.Cursor,
		},
	}

	if store == nil {
		out.Query, err = prisma.TranslateQuery(parsed, splitList(opts.Many))
		return out, err
	}
	if out.Query, err = store.ParseQuery(resource, parsed); err != nil {
		return nil, err
	}
	if out.SQL, out.Args, err = store.SelectSQL(resource, out.Query); err != nil {
		return nil, err
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
