// Package service wires partitioning, normalization, ingestion and
// answering into the two operations the application exposes.
package service

import (
	"context"
	"fmt"

	"github.com/phuslu/log"

	"pdfqa/internal/answer"
	"pdfqa/internal/domain"
	"pdfqa/internal/ingest"
	"pdfqa/internal/normalize"
	"pdfqa/internal/partition"
)

// Service runs the document pipeline end to end.
type Service struct {
	partitioner partition.Partitioner
	normalizer  *normalize.Normalizer
	pipeline    *ingest.Pipeline
	answerer    *answer.Engine
	logger      log.Logger
}

// New creates a Service from its assembled components.
func New(partitioner partition.Partitioner, normalizer *normalize.Normalizer, pipeline *ingest.Pipeline, answerer *answer.Engine, logger log.Logger) *Service {
	return &Service{
		partitioner: partitioner,
		normalizer:  normalizer,
		pipeline:    pipeline,
		answerer:    answerer,
		logger:      logger,
	}
}

// Ingest partitions the PDF, normalizes its elements into typed chunks and
// loads them into a collection derived from the document. It returns the
// collection name and the ingestion report. An existing collection without
// force skips the run entirely, before any partitioning or description
// work is done.
func (s *Service) Ingest(ctx context.Context, pdfPath string, force bool) (string, ingest.Report, error) {
	collection := ingest.CollectionName(pdfPath)
	if !force {
		exists, err := s.pipeline.Exists(ctx, collection)
		if err != nil {
			return collection, ingest.Report{}, fmt.Errorf("check collection %q: %w", collection, err)
		}
		if exists {
			s.logger.Info().Str("collection", collection).Msg("collection already exists, skipping ingestion")
			return collection, ingest.Report{Status: ingest.StatusSkipped}, nil
		}
	}
	s.logger.Info().Str("path", pdfPath).Str("collection", collection).Msg("starting ingestion")

	structural, err := s.partitioner.Structural(ctx, pdfPath)
	if err != nil {
		return collection, ingest.Report{}, fmt.Errorf("partition %s: %w", pdfPath, err)
	}
	chunked, err := s.partitioner.Chunked(ctx, pdfPath)
	if err != nil {
		return collection, ingest.Report{}, fmt.Errorf("chunk %s: %w", pdfPath, err)
	}

	images, err := s.normalizer.Images(ctx, structural)
	if err != nil {
		return collection, ingest.Report{}, fmt.Errorf("normalize images: %w", err)
	}
	tables, err := s.normalizer.Tables(ctx, structural)
	if err != nil {
		return collection, ingest.Report{}, fmt.Errorf("normalize tables: %w", err)
	}
	texts := s.normalizer.TextChunks(chunked)

	report, err := s.pipeline.Ingest(ctx, collection, ingest.Sources{
		Images: images,
		Tables: tables,
		Texts:  texts,
	}, force)
	if err != nil {
		return collection, report, err
	}
	s.logger.Info().Str("collection", collection).Str("status", string(report.Status)).Int("total", report.Total()).Int("skipped", report.Skipped).Msg("ingestion finished")
	return collection, report, nil
}

// Answer streams a grounded answer for the query over the named collection.
func (s *Service) Answer(ctx context.Context, query, collection string, strategy domain.Strategy, model string, emit func(delta string)) error {
	return s.answerer.Answer(ctx, query, collection, strategy, model, emit)
}

// Models lists the generator model names available for answering.
func (s *Service) Models() []string { return s.answerer.Models() }
