package services

import (
	"errors"

	"github.com/kalashagnihotri/debate-backend/internal/models"

	"gorm.io/gorm"
)

type TopicService struct {
	db *gorm.DB
}

func NewTopicService(db *gorm.DB) *TopicService {
	return &TopicService{db: db}
}

func (s *TopicService) CreateTopic(creatorID uint, title, description, category string) (*models.Topic, error) {
	if title == "" {
		return nil, errors.New("title is required")
	}

	topic := models.Topic{
		CreatorID:   creatorID,
		Title:       title,
		Description: description,
		Category:    category,
	}
	if err := s.db.Create(&topic).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

func (s *TopicService) ListTopics(category string) ([]models.Topic, error) {
	var topics []models.Topic
	q := s.db.Order("created_at DESC")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

func (s *TopicService) GetTopic(topicID uint) (*models.Topic, error) {
	var topic models.Topic
	if err := s.db.First(&topic, topicID).Error; err != nil {
		return nil, errors.New("topic not found")
	}
	return &topic, nil
}

func (s *TopicService) UpdateTopic(topicID, userID uint, title, description, category string) (*models.Topic, error) {
	var topic models.Topic
	if err := s.db.Where("id = ? AND creator_id = ?", topicID, userID).First(&topic).Error; err != nil {
		return nil, errors.New("topic not found")
	}

	if title != "" {
		topic.Title = title
	}
	topic.Description = description
	if category != "" {
		topic.Category = category
	}
	if err := s.db.Save(&topic).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

func (s *TopicService) DeleteTopic(topicID, userID uint) error {
	res := s.db.Where("id = ? AND creator_id = ?", topicID, userID).Delete(&models.Topic{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("topic not found")
	}
	return nil
}
