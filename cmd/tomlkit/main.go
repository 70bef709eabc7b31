// Command tomlkit queries and edits TOML documents from the command line
// without disturbing their formatting. Keys are addressed with the same
// dotted paths the library takes, so `tomlkit -g database.ports[1] -i
// conf.toml` prints the second port and nothing else changes hands.
//
// One command flag runs per invocation. When --input-file is omitted the
// names of the files to operate on are read from stdin, one per line.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	errs "github.com/bdlm/errors"
	"github.com/bdlm/log"
	"github.com/spf13/cobra"

	"github.com/joelself/tomllib"
)

type tomlkitParams struct {
	GetValue    string
	HasValue    string
	GetChildren string
	HasChildren string
	SetValue    string
	SetTrue     string
	SetFalse    string
	Separator   string
	Quiet       bool
	PrintDoc    bool
	InputFile   string
	OutputFile  string
	Verbose     bool
}

var params = &tomlkitParams{}

var rootCmd = &cobra.Command{
	Use:   "tomlkit",
	Short: "Tomlkit reads and edits TOML documents while preserving their formatting.",
	Long: "Tomlkit reads and edits TOML documents while preserving their formatting. " +
		"Values are addressed by dotted key paths with bracketed indexes for array " +
		"positions, like servers.alpha.ip or products[2].name. If no input file is " +
		"given the names of files to process are read from stdin, one per line.",
	Run: tomlkitRun,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tomlkit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("tomlkit v0.1 -- HEAD")
	},
}

func init() {
	rootCmd.Flags().StringVarP(&params.GetValue, "get-value", "g", "",
		"comma separated keys to look up; if any key has no value the whole command fails")
	rootCmd.Flags().StringVar(&params.HasValue, "has-value", "",
		"comma separated keys; prints true or false for each")
	rootCmd.Flags().StringVarP(&params.GetChildren, "get-children", "c", "",
		"comma separated keys; prints each key's child keys or element count")
	rootCmd.Flags().StringVar(&params.HasChildren, "has-children", "",
		"comma separated keys; prints true or false for each")
	rootCmd.Flags().StringVarP(&params.SetValue, "set-value", "s", "",
		"comma separated key,value,type triplets to write; types: basic-string|bs, "+
			"ml-basic-string|mbs, literal-string|ls, ml-literal-string|mls, "+
			"integer|int, float|flt, boolean|bool, datetime|dt")
	rootCmd.Flags().StringVar(&params.SetTrue, "set-true", "true",
		"text printed in place of true")
	rootCmd.Flags().StringVar(&params.SetFalse, "set-false", "false",
		"text printed in place of false")
	rootCmd.Flags().StringVarP(&params.Separator, "separator", "p", ", ",
		"string separating multiple results")
	rootCmd.Flags().BoolVarP(&params.Quiet, "quiet", "q", false,
		"turn off printing Success for each successful modification")
	rootCmd.Flags().BoolVar(&params.PrintDoc, "print-doc", false,
		"print the resulting TOML document after all requested changes")
	rootCmd.Flags().StringVarP(&params.InputFile, "input-file", "i", "",
		"the TOML document to parse and manipulate; omit to read file names from stdin")
	rootCmd.Flags().StringVarP(&params.OutputFile, "output-file", "o", "",
		"where set-value writes the finished document; defaults to the input file")
	rootCmd.Flags().BoolVarP(&params.Verbose, "verbose", "v", false,
		"enable debug logging")

	rootCmd.AddCommand(versionCmd)
}

func init() {
	levelFlag := os.Getenv("LOG_LEVEL")
	if levelFlag == "" {
		levelFlag = "info"
	}
	level, err := log.ParseLevel(levelFlag)
	if err != nil {
		log.WithField("err", err).Warnf("%-v", err)
		level = log.InfoLevel
	}
	log.SetFormatter(&log.TextFormatter{
		ForceTTY: true,
	})
	log.SetLevel(level)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func tomlkitRun(cmd *cobra.Command, args []string) {
	if params.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	if params.InputFile != "" {
		processDocument(params.InputFile)
		return
	}

	// No input file given, so file names arrive on stdin one per line.
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		name := strings.TrimSpace(sc.Text())
		if name == "" {
			continue
		}
		processDocument(name)
	}
	if err := sc.Err(); err != nil {
		fmt.Printf("Unable to read input file names from stdin: %s\n", err)
		os.Exit(1)
	}
}

// processDocument runs the requested commands against one file and prints
// their results joined by the separator. Any command failure aborts the
// commands that follow it.
func processDocument(filePath string) {
	content, err := getFile(filePath)
	if err != nil {
		fmt.Printf("Error \"%s\": Unable to open file: %s\n", filePath, err)
		os.Exit(1)
	}

	doc, parseRes := tomllib.Parse([]byte(content))
	log.WithFields(log.Fields{
		"file":  filePath,
		"state": parseRes.State.String(),
	}).Debug("parsed document")
	switch parseRes.State {
	case tomllib.Partial:
		fmt.Printf("Error \"%s\": Document only partially parsed. Please correct any errors before trying again.\n",
			filePath)
		os.Exit(1)
	case tomllib.PartialError:
		fmt.Printf("Error \"%s\": Document only partially parsed with errors. Please correct any errors before trying again.\n",
			filePath)
		os.Exit(1)
	case tomllib.Failure:
		fmt.Printf("Error \"%s\": Completely failed to parse document. Please correct any error before trying again.\n",
			filePath)
		os.Exit(1)
	case tomllib.FullError:
		fmt.Printf("Error \"%s\": Parsed entire document, but with errors: %s.\n",
			filePath, joinParseErrors(parseRes.Errors))
		os.Exit(1)
	}

	var (
		results []result
		command bool
		quiet   bool
	)
	ok := func() bool {
		return len(results) == 0 || results[len(results)-1].failure == ""
	}

	if params.GetValue != "" {
		command = true
		results = append(results, getValue(doc, params.GetValue, params.Separator))
	}
	if ok() && params.HasValue != "" {
		command = true
		results = append(results, hasValue(doc, params.HasValue, params.Separator, params.SetTrue, params.SetFalse))
	}
	if ok() && params.GetChildren != "" {
		command = true
		results = append(results, getChildren(doc, params.GetChildren, params.Separator))
	}
	if ok() && params.HasChildren != "" {
		command = true
		results = append(results, hasChildren(doc, params.HasChildren, params.Separator, params.SetTrue, params.SetFalse))
	}
	if ok() && params.SetValue != "" {
		command = true
		quiet = params.Quiet
		results = append(results, setValue(doc, params.SetValue, params.Separator, quiet))
		if ok() {
			outFile := filePath
			if params.OutputFile != "" {
				outFile = params.OutputFile
			}
			if err := writeToFile(outFile, doc); err != nil {
				log.WithField("err", err).Debugf("%-v", err)
				fmt.Printf("Error \"%s\": Unable to write to file: \"%s\". Reason: %s\n", filePath, outFile, err)
				os.Exit(1)
			}
		}
	}
	if !command {
		fmt.Printf("Error \"%s\": No command was specified.\n", filePath)
		_ = rootCmd.Usage()
		os.Exit(1)
	}

	for i, res := range results {
		if res.failure != "" {
			fmt.Printf("Error \"%s\": %s", filePath, res.failure)
		} else if !quiet {
			fmt.Print(res.text)
		}
		if i < len(results)-1 {
			fmt.Print(params.Separator)
		}
	}
	fmt.Println()

	if params.PrintDoc {
		fmt.Println("\n||  ||  ||  ||  ||  ||  ||  ||  ||  DOCUMENT  ||  ||  ||  ||  ||  ||  ||  ||  ||")
		fmt.Println(`\/  \/  \/  \/  \/  \/  \/  \/  \/            \/  \/  \/  \/  \/  \/  \/  \/  \/`)
		fmt.Println()
		fmt.Println(doc.String())
	}
}

// result is one command's output: text on success, a message on failure.
type result struct {
	text    string
	failure string
}

func good(text string) result { return result{text: text} }

func bad(format string, args ...any) result {
	return result{failure: fmt.Sprintf(format, args...)}
}

func getValue(doc *tomllib.Document, csv, sep string) result {
	keys := splitEscaped(csv)
	if len(keys) == 0 {
		return bad("No keys specified: \"%s\".", csv)
	}
	var sb strings.Builder
	for i, key := range keys {
		v := doc.GetValue(key)
		if v == nil {
			return bad("Key \"%s\" not found.", key)
		}
		sb.WriteString(v.String())
		if i < len(keys)-1 {
			sb.WriteString(sep)
		}
	}
	return good(sb.String())
}

func hasValue(doc *tomllib.Document, csv, sep, trueVal, falseVal string) result {
	keys := splitEscaped(csv)
	if len(keys) == 0 {
		return bad("No keys specified: \"%s\".", csv)
	}
	var sb strings.Builder
	for i, key := range keys {
		if doc.HasValue(key) {
			sb.WriteString(trueVal)
		} else {
			sb.WriteString(falseVal)
		}
		if i < len(keys)-1 {
			sb.WriteString(sep)
		}
	}
	return good(sb.String())
}

func getChildren(doc *tomllib.Document, csv, sep string) result {
	keys := splitEscaped(csv)
	if len(keys) == 0 {
		return bad("No keys specified: \"%s\".", csv)
	}
	var sb strings.Builder
	for i, key := range keys {
		children := doc.GetChildren(key)
		if children == nil {
			return bad("Key \"%s\" not found.", key)
		}
		switch c := children.(type) {
		case tomllib.Keys:
			sb.WriteByte('[')
			sb.WriteString(strings.Join(c, ", "))
			sb.WriteByte(']')
		case tomllib.Count:
			if c == 0 {
				return bad("Key \"%s\" has no children.", key)
			}
			sb.WriteString(strconv.Itoa(int(c)))
		}
		if i < len(keys)-1 {
			sb.WriteString(sep)
		}
	}
	return good(sb.String())
}

func hasChildren(doc *tomllib.Document, csv, sep, trueVal, falseVal string) result {
	keys := splitEscaped(csv)
	if len(keys) == 0 {
		return bad("No keys specified: \"%s\".", csv)
	}
	var sb strings.Builder
	for i, key := range keys {
		if doc.HasChildren(key) {
			sb.WriteString(trueVal)
		} else {
			sb.WriteString(falseVal)
		}
		if i < len(keys)-1 {
			sb.WriteString(sep)
		}
	}
	return good(sb.String())
}

func setValue(doc *tomllib.Document, csv, sep string, quiet bool) result {
	fields := splitEscaped(csv)
	if len(fields) == 0 || len(fields)%3 != 0 {
		return bad("No keys or wrong number of keys specified (must be a multiple of 3): \"%s\".", csv)
	}
	var sb strings.Builder
	for i := 0; i < len(fields); i += 3 {
		key, val, typ := fields[i], fields[i+1], fields[i+2]
		value, err := typedValue(val, typ)
		if err != nil {
			if errors.Is(err, errUnknownType) {
				return bad("Type \"%s\" not recognized for key: \"%s\"", typ, key)
			}
			return bad("Unable to parse value: \"%s\" as type: \"%s\" for key: \"%s\"", val, typ, key)
		}
		log.WithFields(log.Fields{
			"key":  key,
			"type": typ,
		}).Debug("setting value")
		if !doc.SetValue(key, value) {
			return bad("Could not set value of key: \"%s\" to value: \"%s\", with type \"%s\"", key, val, typ)
		}
		if !quiet {
			sb.WriteString("Success")
			if i+3 < len(fields) {
				sb.WriteString(sep)
			}
		}
	}
	return good(sb.String())
}

var errUnknownType = errors.New("type not recognized")

// typedValue builds the library value named by a set-value triplet's type
// field. Short and long type names are accepted.
func typedValue(val, typ string) (tomllib.Value, error) {
	switch typ {
	case "basic-string", "bs":
		return tomllib.NewBasicString(val)
	case "ml-basic-string", "mbs":
		return tomllib.NewMLBasicString(val)
	case "literal-string", "ls":
		return tomllib.NewLiteralString(val)
	case "ml-literal-string", "mls":
		return tomllib.NewMLLiteralString(val)
	case "integer", "int":
		return tomllib.IntegerFromString(val)
	case "float", "flt":
		return tomllib.FloatFromString(val)
	case "boolean", "bool":
		return tomllib.BooleanFromString(val)
	case "datetime", "dt":
		return tomllib.DateTimeFromText(val)
	}
	return nil, errUnknownType
}

// splitEscaped splits a comma separated field list. A backslash escapes
// the character after it, so keys and values may contain literal commas.
func splitEscaped(s string) []string {
	if s == "" {
		return nil
	}
	var fields []string
	var cur strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

func joinParseErrors(perrs []tomllib.ParseError) string {
	parts := make([]string, 0, len(perrs))
	for i := range perrs {
		parts = append(parts, perrs[i].Error())
	}
	return strings.Join(parts, "; ")
}

func getFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func writeToFile(path string, doc *tomllib.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(err, 0, "unable to create output file")
	}
	if _, err := f.WriteString(doc.String()); err != nil {
		f.Close()
		return errs.Wrap(err, 0, "unable to write document")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errs.Wrap(err, 0, "unable to flush output file")
	}
	return f.Close()
}
