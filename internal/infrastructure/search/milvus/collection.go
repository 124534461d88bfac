package milvus

import (
	"context"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

// Scalar fields stored next to each precedent vector.
const (
	fieldID       = "id"
	fieldCaseID   = "case_id"
	fieldTitle    = "title"
	fieldJudgment = "judgment"
	fieldCourt    = "court"
	fieldFine     = "fine"
	fieldYear     = "year"
	fieldLink     = "link"
	fieldContent  = "content"

	maxIDLength      = 128
	maxShortLength   = 512
	maxContentLength = 65535

	shardsNum     = 2
	hnswM         = 16
	hnswConstruct = 200
)

var outputFields = []string{fieldCaseID, fieldTitle, fieldJudgment, fieldCourt, fieldFine, fieldYear, fieldLink, fieldContent}

// precedentSchema describes the precedent collection for vectors of dim.
func precedentSchema(name, vectorField string, dim int) *entity.Schema {
	varchar := func(n string, max int) *entity.Field {
		return entity.NewField().WithName(n).WithDataType(entity.FieldTypeVarChar).WithMaxLength(int64(max))
	}
	return entity.NewSchema().
		WithName(name).
		WithDescription("court precedents for defamation and insult cases").
		WithField(varchar(fieldID, maxIDLength).WithIsPrimaryKey(true)).
		WithField(varchar(fieldCaseID, maxIDLength)).
		WithField(varchar(fieldTitle, maxShortLength)).
		WithField(varchar(fieldJudgment, maxShortLength)).
		WithField(varchar(fieldCourt, maxShortLength)).
		WithField(entity.NewField().WithName(fieldFine).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(fieldYear).WithDataType(entity.FieldTypeInt64)).
		WithField(varchar(fieldLink, maxShortLength)).
		WithField(varchar(fieldContent, maxContentLength)).
		WithField(entity.NewField().WithName(vectorField).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim)))
}

// EnsureCollection creates the precedent collection with an HNSW index when
// missing, then loads it for search.
func (s *PrecedentSearcher) EnsureCollection(ctx context.Context) error {
	mc := s.client.SDK()
	if mc == nil {
		return ErrConnectionFailed
	}

	has, err := mc.HasCollection(ctx, s.collection)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to check milvus collection")
	}
	if !has {
		schema := precedentSchema(s.collection, s.vectorField, s.embedder.Dimension())
		if err := mc.CreateCollection(ctx, schema, shardsNum); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create milvus collection")
		}
		idx, err := entity.NewIndexHNSW(s.metric, hnswM, hnswConstruct)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeValidation, "invalid milvus index parameters")
		}
		if err := mc.CreateIndex(ctx, s.collection, s.vectorField, idx, false); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create milvus index")
		}
		s.logger.Info("milvus collection created",
			logging.String("collection", s.collection),
			logging.Int("dim", s.embedder.Dimension()),
		)
	}

	if err := mc.LoadCollection(ctx, s.collection, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load milvus collection")
	}
	return nil
}
