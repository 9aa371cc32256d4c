// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup and by `collabctl indexes`. Each ensure*
function is idempotent. Errors are aggregated so every problem is visible
and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	sets := []struct {
		coll   string
		models []mongo.IndexModel
	}{
		{"projects", projectIndexes()},
		{"approvals", approvalIndexes()},
		{"supervisions", supervisionIndexes()},
		{"selections", selectionIndexes()},
		{"submissions", groupKeyIndexes("submissions")},
		{"reviews", groupKeyIndexes("reviews")},
		{"notifications", notificationIndexes()},
		{"users", userIndexes()},
	}

	var problems []string
	for _, s := range sets {
		if err := ensureIndexSet(ctx, db.Collection(s.coll), s.models, log); err != nil {
			problems = append(problems, s.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolOf(b *bool) bool { return b != nil && *b }

// Mongo/DocDB return IndexOptionsConflict when an index with the same keys
// already exists under a different name or with different options.
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listExisting(ctx context.Context, coll *mongo.Collection, log *zap.Logger) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			log.Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, log *zap.Logger) error {
	var errs []string
	for _, m := range models {
		if err := reconcile(ctx, coll, m, log); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// reconcile makes one desired index exist with the desired name and
// uniqueness, dropping and recreating a same-keyed index when they differ.
func reconcile(ctx context.Context, coll *mongo.Collection, m mongo.IndexModel, log *zap.Logger) error {
	var name string
	var unique *bool
	if m.Options != nil {
		if m.Options.Name != nil {
			name = *m.Options.Name
		}
		unique = m.Options.Unique
	}
	sig := keySig(m.Keys.(bson.D))
	start := time.Now()
	fields := []zap.Field{
		zap.String("collection", coll.Name()),
		zap.String("name", name),
		zap.String("keys", sig),
		zap.Bool("unique", boolOf(unique)),
	}

	ex, found := listExisting(ctx, coll, log)[sig]
	if found && boolOf(ex.Unique) == boolOf(unique) && (name == "" || ex.Name == name) {
		log.Debug("reusing existing index", fields...)
		return nil
	}
	if found {
		log.Info("replacing index with mismatched name or options", append(fields, zap.String("existing", ex.Name))...)
		if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
			return fmt.Errorf("%s(%s): drop failed: %w", coll.Name(), name, err)
		}
	}

	_, err := coll.Indexes().CreateOne(ctx, m)
	if isOptionsConflictErr(err) {
		// Raced with another instance or a same-keyed index appeared; retry
		// once against a fresh listing.
		if ex, ok := listExisting(ctx, coll, log)[sig]; ok {
			if boolOf(ex.Unique) == boolOf(unique) {
				return nil
			}
			if _, dropErr := coll.Indexes().DropOne(ctx, ex.Name); dropErr != nil {
				log.Warn("failed to drop conflicting index", append(fields, zap.Error(dropErr))...)
			}
			_, err = coll.Indexes().CreateOne(ctx, m)
		}
	}
	if err != nil {
		log.Warn("index ensure failed", append(fields, zap.Error(err))...)
		if wafflemongo.IsDup(err) && boolOf(unique) {
			return fmt.Errorf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name)
		}
		return fmt.Errorf("%s(%s): %w", coll.Name(), name, err)
	}
	log.Info("index ensured", append(fields, zap.Duration("took", time.Since(start)))...)
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func projectIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Titles are unique after case/diacritics folding.
		{
			Keys:    bson.D{{Key: "title_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_projects_titleci"),
		},
		// Lock-expiry sweep: unlocked projects ordered by deadline.
		{
			Keys:    bson.D{{Key: "lock.state", Value: 1}, {Key: "lock.unlocked_until", Value: 1}},
			Options: options.Index().SetName("idx_projects_lock"),
		},
		{
			Keys:    bson.D{{Key: "representative_id", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_projects_rep__id"),
		},
	}
}

func approvalIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Visibility listing: projects approved for a university.
		{
			Keys:    bson.D{{Key: "entries.university_ci", Value: 1}, {Key: "entries.status", Value: 1}},
			Options: options.Index().SetName("idx_approvals_uni_status"),
		},
		{
			Keys:    bson.D{{Key: "entries.teacher_id", Value: 1}},
			Options: options.Index().SetName("idx_approvals_teacher"),
		},
	}
}

func supervisionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "entries.email", Value: 1}},
			Options: options.Index().SetName("idx_supervisions_email"),
		},
		{
			Keys:    bson.D{{Key: "entries.teacher_id", Value: 1}},
			Options: options.Index().SetName("idx_supervisions_teacher"),
		},
	}
}

func selectionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Completion updates address a selection by id alone.
		{
			Keys:    bson.D{{Key: "selections.selection_id", Value: 1}},
			Options: options.Index().SetName("idx_selections_selection_id"),
		},
		{
			Keys:    bson.D{{Key: "selections.group_members", Value: 1}},
			Options: options.Index().SetName("idx_selections_members"),
		},
	}
}

func groupKeyIndexes(coll string) []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "selection_id", Value: 1}},
			Options: options.Index().SetName("idx_" + coll + "_project_selection"),
		},
	}
}

func notificationIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Inbox: newest first per recipient.
		{
			Keys:    bson.D{{Key: "recipients.user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_notifications_recipient_created"),
		},
		{
			Keys:    bson.D{{Key: "related_entity.type", Value: 1}, {Key: "related_entity.id", Value: 1}},
			Options: options.Index().SetName("idx_notifications_related"),
		},
	}
}

func userIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}},
			Options: options.Index().SetName("idx_users_role"),
		},
	}
}
