package service

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	apperrors "modtracker/internal/errors"
	"modtracker/internal/model"
	"modtracker/internal/repository"
	"modtracker/internal/tracker"
)

// ProjectInput holds the editable project fields.
type ProjectInput struct {
	Name     string
	Category string
	Color    string
	IsGlobal bool
}

// ProjectView is a project as seen by one user, with that user's timer.
type ProjectView struct {
	model.Project
	BaseSeconds     int64   `json:"base_seconds"`
	DisplaySeconds  int64   `json:"display_seconds"`
	IsRunning       bool    `json:"is_running"`
	SessionComment  *string `json:"session_comment"`
	IsHiddenForUser bool    `json:"is_hidden_for_user"`
}

// ProjectService manages projects and their per-user presentation.
type ProjectService interface {
	List(ctx context.Context, actor Actor, includeHidden bool) ([]ProjectView, error)
	Create(ctx context.Context, actor Actor, in ProjectInput) (*model.Project, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, in ProjectInput) (*model.Project, error)
	SetActive(ctx context.Context, actor Actor, id uuid.UUID, active bool) (*model.Project, error)
	SetHidden(ctx context.Context, actor Actor, id uuid.UUID, hidden bool) error
}

type projectService struct {
	store repository.Store
	now   Clock
}

// NewProjectService creates a new project service.
func NewProjectService(store repository.Store, clock Clock) ProjectService {
	return &projectService{store: store, now: clockOrNow(clock)}
}

// List returns every project for admins, and active global projects plus their own for
// operators, ordered by the user's saved project order and then by name.
func (s *projectService) List(ctx context.Context, actor Actor, includeHidden bool) ([]ProjectView, error) {
	user, err := s.store.Users().FindByID(ctx, actor.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, storageErr("find user", err)
	}

	var projects []model.Project
	if actor.IsAdmin() {
		projects, err = s.store.Projects().ListAll(ctx)
	} else {
		projects, err = s.store.Projects().ListVisible(ctx, actor.UserID)
	}
	if err != nil {
		return nil, storageErr("list projects", err)
	}

	states, err := s.store.States().ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, storageErr("list states", err)
	}
	rec := tracker.Reconcile(states, s.now())
	byProject := make(map[uuid.UUID]model.UserProjectState, len(rec.States))
	for _, st := range rec.States {
		byProject[st.ProjectID] = st
	}

	views := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		st := byProject[p.ID]
		if st.IsHiddenForUser && !includeHidden {
			continue
		}
		views = append(views, ProjectView{
			Project:         p,
			BaseSeconds:     st.BaseSeconds,
			DisplaySeconds:  rec.Display[p.ID],
			IsRunning:       st.IsRunning(),
			SessionComment:  st.SessionComment,
			IsHiddenForUser: st.IsHiddenForUser,
		})
	}
	sortByOrder(views, user.ProjectOrder)
	return views, nil
}

func sortByOrder(views []ProjectView, order model.UUIDList) {
	rank := make(map[uuid.UUID]int, len(order))
	for i, id := range order {
		rank[id] = i
	}
	sort.SliceStable(views, func(i, j int) bool {
		ri, iok := rank[views[i].ID]
		rj, jok := rank[views[j].ID]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return strings.ToLower(views[i].Name) < strings.ToLower(views[j].Name)
		}
	})
}

func (s *projectService) Create(ctx context.Context, actor Actor, in ProjectInput) (*model.Project, error) {
	project := &model.Project{
		CreatorID: actor.UserID,
		Name:      strings.TrimSpace(in.Name),
		Category:  strings.TrimSpace(in.Category),
		Color:     in.Color,
		IsGlobal:  in.IsGlobal && actor.IsAdmin(),
		IsActive:  true,
	}
	if err := s.store.Projects().Create(ctx, project); err != nil {
		return nil, storageErr("create project", err)
	}
	return project, nil
}

func (s *projectService) Update(ctx context.Context, actor Actor, id uuid.UUID, in ProjectInput) (*model.Project, error) {
	project, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	project.Name = strings.TrimSpace(in.Name)
	project.Category = strings.TrimSpace(in.Category)
	project.Color = in.Color
	if actor.IsAdmin() {
		project.IsGlobal = in.IsGlobal
	}
	if err := s.store.Projects().Update(ctx, project); err != nil {
		return nil, storageErr("update project", err)
	}
	return project, nil
}

// SetActive soft-deactivates or reactivates a project. Existing logs keep referencing it.
func (s *projectService) SetActive(ctx context.Context, actor Actor, id uuid.UUID, active bool) (*model.Project, error) {
	project, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	project.IsActive = active
	if err := s.store.Projects().Update(ctx, project); err != nil {
		return nil, storageErr("update project", err)
	}
	return project, nil
}

func (s *projectService) SetHidden(ctx context.Context, actor Actor, id uuid.UUID, hidden bool) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	return s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		states, err := tx.States().ListByUserForUpdate(ctx, actor.UserID)
		if err != nil {
			return storageErr("lock states", err)
		}
		changed := tracker.NewTimerState(actor.UserID, states).SetHidden(id, hidden)
		if err := tx.States().Upsert(ctx, changed...); err != nil {
			return storageErr("upsert state", err)
		}
		return nil
	})
}

func (s *projectService) find(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	project, err := s.store.Projects().FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrProjectNotFound
		}
		return nil, storageErr("find project", err)
	}
	return project, nil
}

func (s *projectService) editable(ctx context.Context, actor Actor, id uuid.UUID) (*model.Project, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(project.CreatorID) {
		return nil, apperrors.ErrForbidden
	}
	return project, nil
}
