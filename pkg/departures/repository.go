package departures

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ragequit-tracker/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrDepartureNotFound = errors.New("departure not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type DepartureModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	PersonName      string    `gorm:"index"`
	Role            string
	Company         string `gorm:"index"`
	DepartureDate   time.Time
	Summary         string
	ProfileImageURL string
	Status          string `gorm:"index"`
	PublicityScore  float64
	Metadata        datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Tweets       []TweetModel       `gorm:"foreignKey:DepartureID;constraint:OnDelete:CASCADE"`
	NewsArticles []NewsArticleModel `gorm:"foreignKey:DepartureID;constraint:OnDelete:CASCADE"`
}

func (DepartureModel) TableName() string {
	return "departures"
}

type TweetModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	DepartureID      uuid.UUID `gorm:"type:uuid;index"`
	TweetID          string    `gorm:"uniqueIndex"`
	URL              string
	Text             string
	Likes            int
	Retweets         int
	Replies          int
	Views            int
	MetricsUpdatedAt time.Time
}

func (TweetModel) TableName() string {
	return "tweets"
}

type NewsArticleModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	DepartureID uuid.UUID `gorm:"type:uuid;index"`
	URL         string
	Title       string
	Source      string
	PublishedAt *time.Time
}

func (NewsArticleModel) TableName() string {
	return "news_articles"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&DepartureModel{}, &TweetModel{}, &NewsArticleModel{})
}

// CreateTx inserts a departure and its owned evidence rows inside an
// existing transaction. The moderation approve path shares this so the
// submission flip and the departure insert commit together.
func (r *Repository) CreateTx(tx *gorm.DB, dep models.Departure) (models.Departure, error) {
	now := time.Now().UTC()
	row := DepartureModel{
		ID:              uuid.New(),
		PersonName:      dep.PersonName,
		Role:            dep.Role,
		Company:         string(dep.Company),
		DepartureDate:   dep.DepartureDate,
		Summary:         dep.Summary,
		ProfileImageURL: dep.ProfileImageURL,
		Status:          string(dep.Status),
		PublicityScore:  dep.PublicityScore,
		Metadata:        datatypes.JSONMap(dep.Metadata),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, t := range dep.Tweets {
		row.Tweets = append(row.Tweets, tweetRow(row.ID, t))
	}
	for _, a := range dep.NewsArticles {
		row.NewsArticles = append(row.NewsArticles, articleRow(row.ID, a))
	}

	if err := tx.Create(&row).Error; err != nil {
		return models.Departure{}, err
	}
	return mapDepartureModel(row), nil
}

func (r *Repository) Create(ctx context.Context, dep models.Departure) (models.Departure, error) {
	var created models.Departure
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = r.CreateTx(tx, dep)
		return err
	})
	return created, err
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (models.Departure, error) {
	var row DepartureModel
	err := r.db.WithContext(ctx).
		Preload("Tweets").
		Preload("NewsArticles").
		Where("id = ?", id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Departure{}, ErrDepartureNotFound
	}
	if err != nil {
		return models.Departure{}, err
	}
	return mapDepartureModel(row), nil
}

type ListFilter struct {
	Company   models.Company
	Status    models.DepartureStatus
	Search    string
	Sort      string // date | score | name
	Direction string // asc | desc
	Limit     int
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Departure, error) {
	query := r.db.WithContext(ctx).Model(&DepartureModel{}).
		Preload("Tweets").
		Preload("NewsArticles")

	if filter.Company != "" {
		query = query.Where("company = ?", string(filter.Company))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("person_name ILIKE ? OR role ILIKE ? OR summary ILIKE ?", like, like, like)
	}

	column := map[string]string{
		"date":  "departure_date",
		"score": "publicity_score",
		"name":  "person_name",
	}[filter.Sort]
	if column == "" {
		column = "departure_date"
	}
	direction := "DESC"
	if filter.Direction == "asc" {
		direction = "ASC"
	}
	query = query.Order(fmt.Sprintf("%s %s", column, direction))

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var rows []DepartureModel
	if err := query.Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]models.Departure, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapDepartureModel(row))
	}
	return out, nil
}

// Update writes the curated fields and replaces the evidence collections
// wholesale: old rows deleted, new rows inserted, in one transaction.
func (r *Repository) Update(ctx context.Context, dep models.Departure) (models.Departure, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&DepartureModel{}).Where("id = ?", dep.ID).Updates(map[string]interface{}{
			"person_name":       dep.PersonName,
			"role":              dep.Role,
			"company":           string(dep.Company),
			"departure_date":    dep.DepartureDate,
			"summary":           dep.Summary,
			"profile_image_url": dep.ProfileImageURL,
			"status":            string(dep.Status),
			"publicity_score":   dep.PublicityScore,
			"updated_at":        time.Now().UTC(),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrDepartureNotFound
		}

		if err := tx.Where("departure_id = ?", dep.ID).Delete(&TweetModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("departure_id = ?", dep.ID).Delete(&NewsArticleModel{}).Error; err != nil {
			return err
		}

		for _, t := range dep.Tweets {
			row := tweetRow(dep.ID, t)
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		for _, a := range dep.NewsArticles {
			row := articleRow(dep.ID, a)
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Departure{}, err
	}
	return r.Get(ctx, dep.ID)
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Select("Tweets", "NewsArticles").Delete(&DepartureModel{ID: id})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDepartureNotFound
	}
	return nil
}

func (r *Repository) UpdateScore(ctx context.Context, id uuid.UUID, score float64) error {
	result := r.db.WithContext(ctx).Model(&DepartureModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"publicity_score": score,
		"updated_at":      time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDepartureNotFound
	}
	return nil
}

type CompanyStat struct {
	Company  models.Company `json:"company"`
	Count    int64          `json:"count"`
	AvgScore float64        `json:"avg_score"`
}

func (r *Repository) Stats(ctx context.Context) ([]CompanyStat, error) {
	var stats []CompanyStat
	err := r.db.WithContext(ctx).Model(&DepartureModel{}).
		Select("company, COUNT(*) AS count, COALESCE(AVG(publicity_score), 0) AS avg_score").
		Group("company").
		Order("count DESC").
		Scan(&stats).Error
	return stats, err
}

func tweetRow(departureID uuid.UUID, t models.Tweet) TweetModel {
	metricsAt := t.MetricsUpdatedAt
	if metricsAt.IsZero() {
		metricsAt = time.Now().UTC()
	}
	return TweetModel{
		ID:               uuid.New(),
		DepartureID:      departureID,
		TweetID:          t.TweetID,
		URL:              t.URL,
		Text:             t.Text,
		Likes:            t.Likes,
		Retweets:         t.Retweets,
		Replies:          t.Replies,
		Views:            t.Views,
		MetricsUpdatedAt: metricsAt,
	}
}

func articleRow(departureID uuid.UUID, a models.NewsArticle) NewsArticleModel {
	return NewsArticleModel{
		ID:          uuid.New(),
		DepartureID: departureID,
		URL:         a.URL,
		Title:       a.Title,
		Source:      a.Source,
		PublishedAt: a.PublishedAt,
	}
}

func mapDepartureModel(row DepartureModel) models.Departure {
	dep := models.Departure{
		ID:              row.ID,
		PersonName:      row.PersonName,
		Role:            row.Role,
		Company:         models.Company(row.Company),
		DepartureDate:   row.DepartureDate,
		Summary:         row.Summary,
		ProfileImageURL: row.ProfileImageURL,
		Status:          models.DepartureStatus(row.Status),
		PublicityScore:  row.PublicityScore,
		Metadata:        map[string]interface{}(row.Metadata),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	for _, t := range row.Tweets {
		dep.Tweets = append(dep.Tweets, models.Tweet{
			ID:               t.ID,
			TweetID:          t.TweetID,
			URL:              t.URL,
			Text:             t.Text,
			Likes:            t.Likes,
			Retweets:         t.Retweets,
			Replies:          t.Replies,
			Views:            t.Views,
			MetricsUpdatedAt: t.MetricsUpdatedAt,
		})
	}
	for _, a := range row.NewsArticles {
		dep.NewsArticles = append(dep.NewsArticles, models.NewsArticle{
			ID:          a.ID,
			URL:         a.URL,
			Title:       a.Title,
			Source:      a.Source,
			PublishedAt: a.PublishedAt,
		})
	}
	return dep
}
