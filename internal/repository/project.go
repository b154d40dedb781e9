package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/tallyhours/tally/internal/model"
)

// CreateProject inserts a new project.
func (r *Repository) CreateProject(ctx context.Context, project *model.Project) error {
	query := `
		INSERT INTO projects (id, name, created_at)
		VALUES ($1, $2, $3)
	`

	if _, err := r.pool.Exec(ctx, query, project.ID, project.Name, project.CreatedAt); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetProjectByID retrieves a project by its ID.
func (r *Repository) GetProjectByID(ctx context.Context, id string) (*model.Project, error) {
	query := `SELECT id, name, created_at FROM projects WHERE id = $1`

	project, err := scanProject(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project by ID: %w", err)
	}
	return project, nil
}

// ListProjects returns all projects ordered by name.
func (r *Repository) ListProjects(ctx context.Context) ([]*model.Project, error) {
	query := `SELECT id, name, created_at FROM projects ORDER BY name, id`
	return r.queryProjects(ctx, query)
}

// ListProjectsForUser returns the projects a user is assigned to, ordered by name.
func (r *Repository) ListProjectsForUser(ctx context.Context, userID string) ([]*model.Project, error) {
	query := `
		SELECT p.id, p.name, p.created_at
		FROM projects p
		JOIN project_members pm ON pm.project_id = p.id
		WHERE pm.user_id = $1
		ORDER BY p.name, p.id
	`
	return r.queryProjects(ctx, query, userID)
}

// IsProjectMember reports whether the user is on the project's roster.
func (r *Repository) IsProjectMember(ctx context.Context, projectID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, projectID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check project membership: %w", err)
	}
	return exists, nil
}

// SetProjectMembers replaces the project's roster with exactly userIDs.
// Returns ErrUnknownUsers without changing anything if any id has no user.
func (r *Repository) SetProjectMembers(ctx context.Context, projectID string, userIDs []string) ([]*model.User, error) {
	var members []*model.User

	err := r.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		// Row lock serializes concurrent roster changes on the same project.
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM projects WHERE id = $1 FOR UPDATE`, projectID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrProjectNotFound
			}
			return fmt.Errorf("failed to lock project: %w", err)
		}

		missing, err := missingUserIDs(ctx, tx, userIDs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %s", ErrUnknownUsers, strings.Join(missing, ", "))
		}

		_, err = tx.Exec(ctx, `
			DELETE FROM project_members
			WHERE project_id = $1 AND NOT (user_id = ANY($2::text[]))
		`, projectID, pq.Array(userIDs))
		if err != nil {
			return fmt.Errorf("failed to remove project members: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO project_members (project_id, user_id, assigned_at)
			SELECT $1::text, member, $3::timestamptz FROM unnest($2::text[]) AS member
			ON CONFLICT (project_id, user_id) DO NOTHING
		`, projectID, pq.Array(userIDs), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to add project members: %w", err)
		}

		members, err = listMembers(ctx, tx, projectID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return members, nil
}

// RemoveProjectMember drops one user from the roster. Removing a non-member is not an error.
func (r *Repository) RemoveProjectMember(ctx context.Context, projectID, userID string) error {
	if _, err := r.GetProjectByID(ctx, projectID); err != nil {
		return err
	}

	query := `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`
	if _, err := r.pool.Exec(ctx, query, projectID, userID); err != nil {
		return fmt.Errorf("failed to remove project member: %w", err)
	}
	return nil
}

// ListProjectMembers returns the users assigned to a project.
func (r *Repository) ListProjectMembers(ctx context.Context, projectID string) ([]*model.User, error) {
	return listMembers(ctx, r.pool, projectID)
}

// ListUsersWithProjects returns every USER-role account with its assigned projects.
func (r *Repository) ListUsersWithProjects(ctx context.Context) ([]*model.UserProjects, error) {
	query := `
		SELECT u.id, u.email, u.name, u.role, u.created_at, p.id, p.name, p.created_at
		FROM users u
		LEFT JOIN project_members pm ON pm.user_id = u.id
		LEFT JOIN projects p ON p.id = pm.project_id
		WHERE u.role = 'USER'
		ORDER BY u.name, u.id, p.name, p.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list user assignments: %w", err)
	}
	defer rows.Close()

	var result []*model.UserProjects
	var current *model.UserProjects
	for rows.Next() {
		var (
			user             model.User
			role             string
			projectID        *string
			projectName      *string
			projectCreatedAt *time.Time
		)
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &role, &user.CreatedAt,
			&projectID, &projectName, &projectCreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user assignment: %w", err)
		}
		user.Role = model.Role(role)

		if current == nil || current.User.ID != user.ID {
			current = &model.UserProjects{User: &user, Projects: []*model.Project{}}
			result = append(result, current)
		}
		if projectID != nil {
			current.Projects = append(current.Projects, &model.Project{
				ID:        *projectID,
				Name:      *projectName,
				CreatedAt: *projectCreatedAt,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user assignments: %w", err)
	}
	return result, nil
}

func (r *Repository) queryProjects(ctx context.Context, query string, args ...any) ([]*model.Project, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []*model.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func missingUserIDs(ctx context.Context, q querier, userIDs []string) ([]string, error) {
	rows, err := q.Query(ctx, `SELECT id FROM users WHERE id = ANY($1::text[])`, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to look up users: %w", err)
	}
	defer rows.Close()

	found := make(map[string]struct{}, len(userIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user ids: %w", err)
	}

	var missing []string
	for _, id := range userIDs {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing, nil
}

func listMembers(ctx context.Context, q querier, projectID string) ([]*model.User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.password_hash, u.role, u.created_at
		FROM users u
		JOIN project_members pm ON pm.user_id = u.id
		WHERE pm.project_id = $1
		ORDER BY u.name, u.id
	`

	rows, err := q.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	defer rows.Close()

	members := []*model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project member: %w", err)
		}
		members = append(members, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project members: %w", err)
	}
	return members, nil
}

func scanProject(row pgx.Row) (*model.Project, error) {
	var project model.Project
	err := row.Scan(&project.ID, &project.Name, &project.CreatedAt)
	return &project, err
}
