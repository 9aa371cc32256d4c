// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/collabhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Collections lists every collection EnsureAll manages, in creation order.
var Collections = []string{
	"users",
	"projects",
	"approvals",
	"supervisions",
	"selections",
	"submissions",
	"reviews",
	"students",
	"notifications",
}

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	schemas := map[string]bson.M{
		"users":         usersSchema(),
		"projects":      projectsSchema(),
		"approvals":     approvalsSchema(),
		"supervisions":  supervisionsSchema(),
		"selections":    selectionsSchema(),
		"submissions":   submissionsSchema(),
		"reviews":       reviewsSchema(),
		"students":      studentsSchema(),
		"notifications": notificationsSchema(),
	}

	var problems []string
	for _, coll := range Collections {
		if _, err := ensureCollection(ctx, db, coll, log); err != nil {
			problems = append(problems, coll+": "+err.Error())
			continue
		}
		if err := setValidator(ctx, db, coll, schemas[coll], log); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				log.Info("validator skipped (unsupported)", zap.String("collection", coll))
				continue
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string, log *zap.Logger) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		log.Debug("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		log.Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	log.Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *zap.Logger) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	log.Debug("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	integer  = bson.A{"int", "long"}
	optDate  = bson.M{"bsonType": bson.A{"date", "null"}}
)

func schema(required bson.A, props bson.M) bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType":   "object",
			"required":   required,
			"properties": props,
		},
	}
}

func usersSchema() bson.M {
	return schema(bson.A{"email", "role"}, bson.M{
		"email": nonBlank,
		"role":  bson.M{"enum": bson.A{models.UserAdmin, models.UserRepresentative, models.UserTeacher, models.UserStudent}},
	})
}

func projectsSchema() bson.M {
	return schema(bson.A{"title", "type", "representative_id", "duration", "lock", "version"}, bson.M{
		"title":                  nonBlank,
		"type":                   bson.M{"enum": bson.A{models.ProjectIndividual, models.ProjectGroup}},
		"representative_id":      nonBlank,
		"max_students_per_group": bson.M{"bsonType": integer, "minimum": 0},
		"max_groups":             bson.M{"bsonType": integer, "minimum": 0},
		"duration": bson.M{
			"bsonType": "object",
			"required": bson.A{"start_date", "end_date"},
			"properties": bson.M{
				"start_date": bson.M{"bsonType": "date"},
				"end_date":   bson.M{"bsonType": "date"},
			},
		},
		"lock": bson.M{
			"bsonType": "object",
			"required": bson.A{"state"},
			"properties": bson.M{
				"state":          bson.M{"enum": bson.A{models.LockLocked, models.LockUnlocked}},
				"unlocked_until": optDate,
			},
		},
		"edit_request": bson.M{
			"bsonType": "object",
			"properties": bson.M{
				"status": bson.M{"enum": bson.A{models.EditNone, models.EditPending, models.EditApproved, models.EditRejected}},
			},
		},
	})
}

func ledgerSchema(entry bson.M) bson.M {
	return schema(bson.A{"entries", "version"}, bson.M{
		"entries": bson.M{"bsonType": "array", "items": entry},
	})
}

func approvalsSchema() bson.M {
	return ledgerSchema(bson.M{
		"bsonType": "object",
		"required": bson.A{"teacher_id", "status"},
		"properties": bson.M{
			"teacher_id": nonBlank,
			"status": bson.M{"enum": bson.A{
				models.ApprovalPending, models.ApprovalApproved, models.ApprovalRejected, models.ApprovalNeedMoreInfo,
			}},
		},
	})
}

func supervisionsSchema() bson.M {
	return ledgerSchema(bson.M{
		"bsonType": "object",
		"required": bson.A{"teacher_id", "response"},
		"properties": bson.M{
			"teacher_id": nonBlank,
			"response": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"status": bson.M{"enum": bson.A{models.SupervisionPending, models.SupervisionApproved, models.SupervisionRejected}},
				},
			},
		},
	})
}

func selectionsSchema() bson.M {
	return schema(bson.A{"selections", "version"}, bson.M{
		"selections": bson.M{
			"bsonType": "array",
			"items": bson.M{
				"bsonType": "object",
				"required": bson.A{"selection_id", "group_leader", "group_members"},
				"properties": bson.M{
					"selection_id":  nonBlank,
					"group_leader":  nonBlank,
					"group_members": bson.M{"bsonType": "array", "minItems": 1, "items": nonBlank},
					"completed_at":  optDate,
				},
			},
		},
	})
}

func submissionsSchema() bson.M {
	return schema(bson.A{"project_id", "selection_id", "submissions", "total_submissions"}, bson.M{
		"project_id":        nonBlank,
		"selection_id":      nonBlank,
		"total_submissions": bson.M{"bsonType": integer, "minimum": 0},
		"submissions": bson.M{
			"bsonType": "array",
			"items": bson.M{
				"bsonType": "object",
				"required": bson.A{"submission_id", "submitter", "submitted_at"},
				"properties": bson.M{
					"submission_id": nonBlank,
					"submitter":     nonBlank,
					"submitted_at":  bson.M{"bsonType": "date"},
				},
			},
		},
	})
}

func reviewsSchema() bson.M {
	return schema(bson.A{"project_id", "selection_id", "reviews", "total_reviews", "average_rating"}, bson.M{
		"project_id":     nonBlank,
		"selection_id":   nonBlank,
		"total_reviews":  bson.M{"bsonType": integer, "minimum": 0},
		"average_rating": bson.M{"bsonType": "double", "minimum": 0, "maximum": 5},
		"reviews": bson.M{
			"bsonType": "array",
			"items": bson.M{
				"bsonType": "object",
				"required": bson.A{"reviewer_id", "role", "rating"},
				"properties": bson.M{
					"reviewer_id": nonBlank,
					"role":        bson.M{"enum": bson.A{models.RoleTeacher, models.RoleIndustry}},
					"rating":      bson.M{"bsonType": integer, "minimum": 1, "maximum": 5},
				},
			},
		},
	})
}

func studentsSchema() bson.M {
	return schema(bson.A{"average_rating", "total_reviews"}, bson.M{
		"average_rating": bson.M{"bsonType": "double", "minimum": 0, "maximum": 5},
		"total_reviews":  bson.M{"bsonType": integer, "minimum": 0},
	})
}

func notificationsSchema() bson.M {
	return schema(bson.A{"type", "title", "recipients", "created_at"}, bson.M{
		"type":       nonBlank,
		"title":      nonBlank,
		"created_at": bson.M{"bsonType": "date"},
		"recipients": bson.M{
			"bsonType": "array",
			"minItems": 1,
			"items": bson.M{
				"bsonType": "object",
				"required": bson.A{"user_id", "read"},
				"properties": bson.M{
					"user_id": nonBlank,
					"read":    bson.M{"bsonType": "bool"},
				},
			},
		},
	})
}
