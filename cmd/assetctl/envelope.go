package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tendant/simple-asset/pkg/asset"
	"github.com/tendant/simple-asset/pkg/filesize"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// maxInputSize bounds files read by the offline commands.
var maxInputSize = int64(filesize.GiB)

var errInvalidEnvelope = errors.New("not a valid asset envelope")

type inspectOutput struct {
	asset.Info
	Format       string `json:"format"`
	EnvelopeSize int    `json:"envelope_size"`
}

type verifyOutput struct {
	Format   string   `json:"format"`
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

func runDetect(args cliArgs) error {
	path, err := args.arg("file")
	if err != nil {
		return err
	}
	a, err := readAsset(path, args)
	if err != nil {
		return err
	}

	if args.bool("json") {
		return printJSON(a.Info())
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Signature:\t%s\n", a.Signature())
	fmt.Fprintf(w, "Media type:\t%s\n", a.MediaType())
	fmt.Fprintf(w, "Extension:\t%s\n", a.Extension())
	fmt.Fprintf(w, "Category:\t%s\n", a.Category())
	fmt.Fprintf(w, "Size:\t%s\n", humanize.IBytes(uint64(a.Size())))
	fmt.Fprintf(w, "SHA-256:\t%s\n", a.SHA256())
	return w.Flush()
}

func runEncode(args cliArgs) error {
	path, err := args.arg("file")
	if err != nil {
		return err
	}
	a, err := readAsset(path, args)
	if err != nil {
		return err
	}
	envelope, err := a.MarshalBinary()
	if err != nil {
		return err
	}
	out := args.flag("out")
	if out == "" {
		out = simpleasset.EnvelopeFileName(a.ID())
	}
	if err := writeOutput(out, envelope); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Encoded %s as %s (%s)\n", a.Name(), a.ID(), humanize.IBytes(uint64(len(envelope))))
	return nil
}

func runDecode(args cliArgs) error {
	a, format, _, err := readEnvelopeArg(args)
	if err != nil {
		return err
	}
	out := args.flag("out")
	if out == "" {
		out = a.Name().String()
	}
	if err := writeOutput(out, a.Bytes()); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Decoded %s envelope %s to %s\n", format, a.ID(), out)
	return nil
}

func runInspect(args cliArgs) error {
	a, format, size, err := readEnvelopeArg(args)
	if err != nil {
		return err
	}
	out := inspectOutput{Info: a.Info(), Format: format.String(), EnvelopeSize: size}
	if args.bool("json") {
		return printJSON(out)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", out.ID)
	fmt.Fprintf(w, "Format:\t%s\n", out.Format)
	fmt.Fprintf(w, "Name:\t%s\n", out.Name)
	fmt.Fprintf(w, "Media type:\t%s\n", out.MediaType)
	fmt.Fprintf(w, "Signature:\t%s\n", out.Signature)
	fmt.Fprintf(w, "Category:\t%s\n", out.Category)
	fmt.Fprintf(w, "Payload:\t%s\n", humanize.IBytes(uint64(out.Size)))
	fmt.Fprintf(w, "Envelope:\t%s\n", humanize.IBytes(uint64(out.EnvelopeSize)))
	fmt.Fprintf(w, "Created:\t%s (%s)\n", out.CreatedAt.Format(time.RFC3339Nano), humanize.Time(out.CreatedAt))
	fmt.Fprintf(w, "SHA-256:\t%s\n", out.SHA256)
	fmt.Fprintf(w, "MD5:\t%s\n", out.MD5)
	return w.Flush()
}

func runVerify(args cliArgs) error {
	path, err := args.arg("envelope")
	if err != nil {
		return err
	}
	data, err := readFile(path)
	if err != nil {
		return err
	}

	result := verifyEnvelope(data)
	if args.bool("json") {
		if err := printJSON(result); err != nil {
			return err
		}
	} else {
		fmt.Printf("Format: %s\nValid:  %t\n", result.Format, result.Valid)
		for _, p := range result.Problems {
			fmt.Printf("  - %s\n", p)
		}
	}
	if !result.Valid {
		return errInvalidEnvelope
	}
	return nil
}

func verifyEnvelope(data []byte) verifyOutput {
	a, format := asset.DecodeWithFormat(data)
	result := verifyOutput{Format: format.String(), Valid: true}
	switch {
	case a.IsEmpty():
		result.Valid = false
		result.Problems = append(result.Problems, errInvalidEnvelope.Error())
	case a.VerifyIntegrity() != nil:
		result.Valid = false
		result.Problems = append(result.Problems, a.VerifyIntegrity().Error())
	case format.IsLegacy():
		result.Problems = append(result.Problems, simpleasset.ProblemLegacyLayout)
	}
	if !a.IsEmpty() && !a.IsSignatureCompatible() {
		result.Problems = append(result.Problems,
			fmt.Sprintf("media type %s does not match detected signature %s", a.MediaType(), a.Signature()))
	}
	return result
}

func runUpgrade(args cliArgs) error {
	a, format, _, err := readEnvelopeArg(args)
	if err != nil {
		return err
	}
	envelope, err := a.MarshalBinary()
	if err != nil {
		return err
	}
	out := args.flag("out")
	if out == "" {
		out = args.positional[0]
	}
	if err := writeOutput(out, envelope); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Upgraded %s envelope %s to v4\n", format, a.ID())
	return nil
}

func readAsset(path string, args cliArgs) (asset.FileAsset, error) {
	f, err := os.Open(path)
	if err != nil {
		return asset.Empty(), err
	}
	defer f.Close()

	name := args.flag("name")
	if name == "" {
		name = filepath.Base(path)
	}
	return asset.FromReader(f,
		asset.WithFileName(name),
		asset.WithMediaType(args.flag("media-type")),
		asset.WithMaxSize(maxInputSize),
	)
}

func readEnvelopeArg(args cliArgs) (asset.FileAsset, asset.Format, int, error) {
	path, err := args.arg("envelope")
	if err != nil {
		return asset.Empty(), asset.FormatInvalid, 0, err
	}
	data, err := readFile(path)
	if err != nil {
		return asset.Empty(), asset.FormatInvalid, 0, err
	}
	a, format := asset.DecodeWithFormat(data)
	if a.IsEmpty() {
		return asset.Empty(), format, 0, fmt.Errorf("%s: %w", path, errInvalidEnvelope)
	}
	return a, format, len(data), nil
}

func readFile(path string) ([]byte, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, maxInputSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxInputSize {
		return nil, &asset.SizeError{Size: int64(len(data)), Max: maxInputSize}
	}
	return data, nil
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
