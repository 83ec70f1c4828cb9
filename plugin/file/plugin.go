package file

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/saylorsolutions/logdissect/pkg/iterator"
	"github.com/saylorsolutions/logdissect/plugin"
)

const qualifier = "file"

func Plugin() plugin.Plugin {
	return new(filePlugin)
}

type filePlugin struct{}

func (*filePlugin) ID() string {
	return qualifier
}

func (*filePlugin) Stopping() error {
	return nil
}

func (*filePlugin) Register(reg *plugin.Registration) {
	reg.RegisterSource(qualifier, "Tail", func(ctx context.Context, args ...string) (iterator.Iterator, error) {
		if len(args) < 1 {
			return nil, fmt.Errorf("%w: requires 1 argument", plugin.ErrArgs)
		}
		return CtxTailSource(ctx, args[0])
	})
	reg.DocumentSource(qualifier, "Tail", `file.Tail FILE_NAME

This source will watch the file specified by FILE_NAME for changes, producing a new line for each one.
Existing lines are read first. The file is reopened if it's rotated.`)
	reg.RegisterSource(qualifier, "File", func(ctx context.Context, args ...string) (iterator.Iterator, error) {
		if len(args) < 1 {
			return nil, fmt.Errorf("%w: requires at least 1 argument", plugin.ErrArgs)
		}
		return CtxMultiSource(ctx, args...)
	})
	reg.DocumentSource(qualifier, "File", `file.File FILE_NAME [FILE_NAME...]

This source will read each line of the file specified by FILE_NAME, stopping at the end of the file.
When more than one FILE_NAME is given, the files are read one after the other.
The line is kept in a field "@message", and the file name in "@source".`)
	reg.RegisterSink(qualifier, "File", func(_ context.Context, src iterator.Iterator, args ...string) error {
		if len(args) < 1 {
			iterator.Drain(src)
			return fmt.Errorf("%w: requires 1 or 2 arguments", plugin.ErrArgs)
		}

		if len(args) >= 2 {
			perms, err := strconv.ParseUint(args[1], 8, 32)
			if err != nil {
				iterator.Drain(src)
				return fmt.Errorf("%w: invalid file permission argument", plugin.ErrArgs)
			}
			return Sink(src, args[0], os.FileMode(perms))
		}
		return Sink(src, args[0], 0600)
	})
	reg.DocumentSink(qualifier, "File", `file.File FILE_NAME [FILE_MODE]

This sink will append each record as a JSON document on a single line to a file specified by FILE_NAME, creating it if necessary.
If FILE_MODE is specified, and it's a string representing a valid octal file mode like "644", then this mode will be used to create the file if it doesn't already exist.
If FILE_MODE is specified but invalid, then the sink operation will fail.
If FILE_MODE is not specified, then a value of "600" will be assumed.
The file's permissions will not be modified if it already exists.`)
}
