package workflow

import (
	"context"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/models"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/notify"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CommentService creates comments and reactions and fans the resulting
// notifications out to the entity's followers. The kind set is closed: every
// branch below names its kind explicitly, there is no runtime registry.
type CommentService struct {
	DB       *gorm.DB
	Logger   *logrus.Logger
	Notifier notify.Dispatcher
}

func NewCommentService(db *gorm.DB, logger *logrus.Logger, notifier notify.Dispatcher) *CommentService {
	return &CommentService{DB: db, Logger: logger, Notifier: notifier}
}

func (s *CommentService) dispatch(ctx context.Context, kind string, tenancy utils.Tenancy, recipients []string, data map[string]interface{}) {
	if len(recipients) == 0 {
		return
	}
	go notify.FireAndForget(s.Notifier, s.Logger, &notify.Notification{
		Type:          kind,
		AppUserIds:    recipients,
		CustomerId:    tenancy.CustomerId,
		TenantId:      tenancy.TenantId,
		AppId:         tenancy.AppId,
		Data:          data,
		CorrelationId: utils.GetOrNewCorrelationId(ctx),
	})
}

// CreateComment persists the comment and notifies the report's followers
// after commit. The actor never receives their own event; on a reply the
// parent author is pulled out of the broadcast and gets the dedicated reply
// kind instead. Comments on raw visualizations have no follower set and
// produce no notifications.
func (s *CommentService) CreateComment(ctx context.Context, input *models.NewComment) (*models.Comment, error) {
	comment, err := models.CreateComment(ctx, input)
	if err != nil {
		return nil, err
	}
	if comment.ReportId == nil {
		return comment, nil
	}
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return comment, nil
	}

	skip := []string{comment.AuthorId}
	var parentAuthor string
	if comment.ParentId != nil {
		if parent, err := models.GetComment(ctx, *comment.ParentId); err == nil && parent.AuthorId != comment.AuthorId {
			parentAuthor = parent.AuthorId
			skip = append(skip, parentAuthor)
		}
	}

	followers, err := models.GetAllFollowersOfReport(ctx, *comment.ReportId, skip...)
	if err != nil {
		config.LogError(s.Logger, "workflow", "CreateComment", "resolve followers", comment.ID, err)
		return comment, nil
	}

	data := map[string]interface{}{
		"reportId":  *comment.ReportId,
		"commentId": comment.ID,
		"authorId":  comment.AuthorId,
	}
	s.dispatch(ctx, notify.KindCommentCreated, tenancy, followers, data)
	if parentAuthor != "" {
		s.dispatch(ctx, notify.KindCommentReply, tenancy, []string{parentAuthor}, data)
	}
	return comment, nil
}

// CreateReaction persists the reaction and notifies the report's followers,
// excluding the actor.
func (s *CommentService) CreateReaction(ctx context.Context, input *models.NewReaction) (*models.Reaction, error) {
	reaction, err := models.CreateReaction(ctx, input)
	if err != nil {
		return nil, err
	}
	if reaction.ReportId == nil {
		return reaction, nil
	}
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return reaction, nil
	}

	followers, err := models.GetAllFollowersOfReport(ctx, *reaction.ReportId, reaction.AuthorId)
	if err != nil {
		config.LogError(s.Logger, "workflow", "CreateReaction", "resolve followers", reaction.ID, err)
		return reaction, nil
	}

	s.dispatch(ctx, notify.KindReactionAdded, tenancy, followers, map[string]interface{}{
		"reportId":   *reaction.ReportId,
		"reactionId": reaction.ID,
		"authorId":   reaction.AuthorId,
		"kind":       reaction.Kind,
	})
	return reaction, nil
}
