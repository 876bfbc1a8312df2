package survey

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/campus-tools/gradewire/internal/course"
	"github.com/campus-tools/gradewire/internal/qualtrics"
)

// Distributor is the slice of the survey platform that hands out personal
// links.
type Distributor interface {
	CreateDistribution(ctx context.Context, surveyID, mailingListID string) (string, error)
	DistributionLinks(ctx context.Context, distributionID, surveyID string) ([]qualtrics.DistributionLink, error)
}

// Commenter posts text comments on course submissions.
type Commenter interface {
	CommentOnSubmission(ctx context.Context, courseID, assignmentID, userID int64, text string) error
}

// LinkInjector distributes a private survey to a mailing list and delivers
// each student's one-time link as a comment on their assignment submission.
type LinkInjector struct {
	Survey  Distributor
	Course  Commenter
	Journal Journal
}

func (li *LinkInjector) journal() Journal {
	if li.Journal == nil {
		return nopJournal{}
	}
	return li.Journal
}

// Distribute creates an individual-link distribution of the survey to the
// mailing list and returns the links keyed by recipient email (lowercased).
func (li *LinkInjector) Distribute(ctx context.Context, h *Handle, mailingListID string) (map[string]string, error) {
	distID, err := li.Survey.CreateDistribution(ctx, h.SurveyID, mailingListID)
	if err != nil {
		return nil, fmt.Errorf("distribute survey %s: %w", h.SurveyID, err)
	}
	li.journal().ObjectCreated(h.BuildID, ObjectDistribution, distID)

	links, err := li.Survey.DistributionLinks(ctx, distID, h.SurveyID)
	if err != nil {
		return nil, fmt.Errorf("fetch distribution links: %w", err)
	}
	byEmail := make(map[string]string, len(links))
	for _, l := range links {
		byEmail[strings.ToLower(l.Email)] = l.Link
	}
	slog.Info("distribution created", "survey", h.SurveyID, "distribution", distID, "links", len(byEmail))
	return byEmail, nil
}

// InjectLinks comments each student's personal link onto their submission
// for the assignment. Students without a link (not on the mailing list when
// the distribution was cut) are reported back, not failed on: the sync can
// be re-run after the next roster update.
func (li *LinkInjector) InjectLinks(ctx context.Context, courseID, assignmentID int64, roster course.Roster, emailDomain string, links map[string]string) ([]string, error) {
	var missing []string
	for _, s := range roster {
		link, ok := links[s.Email(emailDomain)]
		if !ok {
			missing = append(missing, s.ExternalID)
			continue
		}
		text := "One-time link to the self-grade survey: " + link
		if err := li.Course.CommentOnSubmission(ctx, courseID, assignmentID, s.InternalID, text); err != nil {
			return missing, fmt.Errorf("inject link for %s: %w", s.ExternalID, err)
		}
	}
	if len(missing) > 0 {
		slog.Warn("students without survey links", "count", len(missing), "students", strings.Join(missing, ", "))
	}
	return missing, nil
}
