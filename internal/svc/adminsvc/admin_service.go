// Package adminsvc implements the administrative operations on users and content.
// Every operation assumes the caller already passed the admin role gate.
package adminsvc

import (
	"context"
	"fmt"

	"github.com/mkrupp/micropost/internal/domain"
	"github.com/mkrupp/micropost/internal/infra/logging"
	"github.com/mkrupp/micropost/internal/repo/user"
	"github.com/mkrupp/micropost/internal/svc/postsvc"
)

// AllowedRoles is the role set of every administrative route.
//
//nolint:gochecknoglobals
var AllowedRoles = domain.RoleSet{domain.RoleAdmin}

// AdminService provides user management and content moderation.
type AdminService struct {
	UserRepo user.Repository
	PostSvc  *postsvc.PostService
	Log      logging.Logger
}

// NewAdminService creates a new AdminService. Content moderation is delegated to postSvc.
func NewAdminService(
	ctx context.Context,
	userRepoFactory user.RepositoryFactory,
	postSvc *postsvc.PostService,
) (*AdminService, error) {
	userRepo, err := userRepoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	return &AdminService{
		UserRepo: userRepo,
		PostSvc:  postSvc,
		Log:      logging.GetLogger("svc.adminsvc.admin_service"),
	}, nil
}

// ListUsers returns every account, without password hashes.
func (s *AdminService) ListUsers(ctx context.Context) ([]domain.Identity, error) {
	users, err := s.UserRepo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	identities := make([]domain.Identity, len(users))
	for i, u := range users {
		identities[i] = u.Identity()
	}

	return identities, nil
}

// GetUser returns a single account.
func (s *AdminService) GetUser(ctx context.Context, rawID string) (domain.Identity, error) {
	id, err := domain.ParseID(rawID)
	if err != nil {
		return domain.Identity{}, err
	}

	found, err := s.UserRepo.GetUserByID(ctx, id)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("get user: %w", err)
	}

	return found.Identity(), nil
}

// UpdateUserRole sets the role of an account.
func (s *AdminService) UpdateUserRole(
	ctx context.Context,
	caller domain.Identity,
	rawID, rawRole string,
) (_ domain.Identity, err error) {
	log := s.Log.With(
		logging.Group("admin", "id", caller.ID.String()),
		logging.Group("user", "id", rawID, "role", rawRole),
	)

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "update role failed", "error", err)
		} else {
			log.InfoContext(ctx, "role updated")
		}
	}()

	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return domain.Identity{}, err
	}

	id, err := domain.ParseID(rawID)
	if err != nil {
		return domain.Identity{}, err
	}

	updated, err := s.UserRepo.UpdateUserRole(ctx, id, role)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("update role: %w", err)
	}

	return updated.Identity(), nil
}

// DeleteUser removes an account. Administrators cannot remove their own.
// Posts and comments of the account are kept.
func (s *AdminService) DeleteUser(ctx context.Context, caller domain.Identity, rawID string) (err error) {
	log := s.Log.With(
		logging.Group("admin", "id", caller.ID.String()),
		logging.Group("user", "id", rawID),
	)

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "delete user failed", "error", err)
		} else {
			log.InfoContext(ctx, "user deleted")
		}
	}()

	id, err := domain.ParseID(rawID)
	if err != nil {
		return err
	}

	if err := domain.CanDeleteUser(caller, id); err != nil {
		return err
	}

	if err := s.UserRepo.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	return nil
}

// DeletePost removes any post.
func (s *AdminService) DeletePost(ctx context.Context, caller domain.Identity, rawID string) error {
	if err := s.PostSvc.DeletePost(ctx, caller, rawID); err != nil {
		return fmt.Errorf("moderate post: %w", err)
	}

	return nil
}

// DeleteComment removes any comment.
func (s *AdminService) DeleteComment(ctx context.Context, caller domain.Identity, rawPostID, rawCommentID string) error {
	if err := s.PostSvc.DeleteComment(ctx, caller, rawPostID, rawCommentID); err != nil {
		return fmt.Errorf("moderate comment: %w", err)
	}

	return nil
}

// Close releases the user repository. The post service is owned by the caller.
func (s *AdminService) Close() error {
	if err := s.UserRepo.Close(); err != nil {
		return fmt.Errorf("close user repo: %w", err)
	}

	return nil
}
