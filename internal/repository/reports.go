package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RishiKendai/textguard/internal/models"
	"github.com/RishiKendai/textguard/internal/plagiarism"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const reportsCollection = "plagiarism_reports"

type ReportsRepository struct {
	mongoRepo *MongoRepository
}

func NewReportsRepository(mongoRepo *MongoRepository) *ReportsRepository {
	return &ReportsRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *ReportsRepository) InsertReport(ctx context.Context, record *models.ReportRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if err := r.mongoRepo.InsertOne(ctx, reportsCollection, record); err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

func (r *ReportsRepository) GetReport(ctx context.Context, runID string) (*models.ReportRecord, error) {
	var record models.ReportRecord
	err := r.mongoRepo.FindOne(ctx, reportsCollection, bson.M{"runId": runID}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("report %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find report: %w", err)
	}
	return &record, nil
}

// ListReports returns run records newest first without their comparison lists
func (r *ReportsRepository) ListReports(ctx context.Context, limit int64) ([]*models.ReportRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"report.comparisons": 0})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.mongoRepo.FindMany(ctx, reportsCollection, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reports: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]*models.ReportRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}
	return records, nil
}

// CompleteReport stores the finished report on a pending run
func (r *ReportsRepository) CompleteReport(ctx context.Context, runID string, report *plagiarism.Report) error {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"status":      models.ReportCompleted,
		"method":      report.Method,
		"report":      report,
		"completedAt": now,
	}}
	return r.update(ctx, runID, update)
}

func (r *ReportsRepository) UpdateReportStatus(ctx context.Context, runID, status, errMsg string) error {
	set := bson.M{"status": status}
	if errMsg != "" {
		set["error"] = errMsg
	}
	if status != models.ReportPending {
		set["completedAt"] = time.Now().UTC()
	}
	return r.update(ctx, runID, bson.M{"$set": set})
}

func (r *ReportsRepository) update(ctx context.Context, runID string, update bson.M) error {
	matched, err := r.mongoRepo.UpdateOne(ctx, reportsCollection, bson.M{"runId": runID}, update)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	if !matched {
		return fmt.Errorf("report %s: %w", runID, ErrNotFound)
	}
	return nil
}
