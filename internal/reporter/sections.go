package reporter

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/fenilsonani/adminkit/internal/logging"
)

// Section is one independent part of a report
type Section struct {
	Title string
	// Run returns the section body. An error yields an empty section.
	Run func(ctx context.Context) (string, error)
}

// RunSections logs every section under its header. A failing section is
// logged and collected; the remaining sections still run.
func RunSections(ctx context.Context, log logrus.FieldLogger, sections []Section) error {
	var result *multierror.Error

	for _, s := range sections {
		if err := ctx.Err(); err != nil {
			return multierror.Append(result, err).ErrorOrNil()
		}

		logging.Section(log, s.Title)
		body, err := s.Run(ctx)
		if err != nil {
			log.WithError(err).Errorf("Failed to collect %s", s.Title)
			result = multierror.Append(result, fmt.Errorf("%s: %w", s.Title, err))
			continue
		}
		logging.Block(log, body)
	}

	return result.ErrorOrNil()
}
