// Package cli implements imagectl, an offline front end to the image
// pipeline for checking files and previewing storage names.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"cabinet_tracker/internal/imagepipeline"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// ErrRejected is returned by check when the pipeline refused the input.
var ErrRejected = errors.New("image rejected")

// NewRootCommand builds imagectl. Files are read through fs.
func NewRootCommand(fs afero.Fs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imagectl",
		Short: "Cabinet image pipeline tool",
		Long: `imagectl runs the upload validation pipeline against local files without a
server, database or storage backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newCheckCmd(fs),
		newNameCmd(),
		newTypesCmd(),
	)
	return cmd
}

func newCheckCmd(fs afero.Fs) *cobra.Command {
	var (
		asBase64     bool
		declared     string
		category     string
		maxBytes     int64
		allowUnknown bool
	)
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a file the way the upload endpoints do",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := afero.ReadFile(fs, args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			pipeline := imagepipeline.New(imagepipeline.Options{
				MaxBytes:           maxBytes,
				RejectUnknownTypes: !allowUnknown,
			})

			name := filepath.Base(args[0])
			var src imagepipeline.Source
			if asBase64 {
				src = imagepipeline.Base64Source{Payload: string(data), OriginalName: name}
			} else {
				if declared == "" {
					declared = imagepipeline.TypeFromFilename(name)
				}
				src = imagepipeline.BytesSource{Data: data, DeclaredType: declared, OriginalName: name}
			}

			outcome := pipeline.Validate(src, category)
			if err := writeJSON(cmd.OutOrStdout(), outcome); err != nil {
				return err
			}
			if !outcome.IsValid {
				return fmt.Errorf("%w: %s", ErrRejected, outcome.FailureReason)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asBase64, "base64", false, "Treat the file as a base64 string, optionally with a data URL prefix")
	cmd.Flags().StringVarP(&declared, "type", "t", "", "Declared MIME type (defaults to the type implied by the extension)")
	cmd.Flags().StringVarP(&category, "category", "c", imagepipeline.DefaultCategory, "Category used for naming")
	cmd.Flags().Int64Var(&maxBytes, "max-size", imagepipeline.DefaultMaxBytes, "Size ceiling in bytes")
	cmd.Flags().BoolVar(&allowUnknown, "allow-unknown", false, "Pass unsupported declared types through unchecked")
	return cmd
}

func newNameCmd() *cobra.Command {
	var (
		category string
		mimeType string
	)
	cmd := &cobra.Command{
		Use:   "name <original-filename>",
		Short: "Print the storage filename an upload would receive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fallback := imagepipeline.CanonicalExtension(mimeType)
			ext := imagepipeline.ExtensionOf(args[0], fallback)
			_, err := fmt.Fprintln(cmd.OutOrStdout(), imagepipeline.NewNamer(0).Generate(category, ext))
			return err
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", imagepipeline.DefaultCategory, "Category prefix")
	cmd.Flags().StringVar(&mimeType, "mime", "", "MIME type whose extension is used when the name has none")
	return cmd
}

type typeInfo struct {
	MIMEType  string `json:"mimeType"`
	Extension string `json:"extension"`
}

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the supported image types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			types := imagepipeline.SupportedTypes()
			out := make([]typeInfo, 0, len(types))
			for _, t := range types {
				out = append(out, typeInfo{MIMEType: t, Extension: imagepipeline.CanonicalExtension(t)})
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
