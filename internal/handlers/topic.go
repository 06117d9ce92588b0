package handlers

import (
	"net/http"
	"strconv"

	"github.com/kalashagnihotri/debate-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type TopicHandler struct {
	topicService *services.TopicService
}

func NewTopicHandler(topicService *services.TopicService) *TopicHandler {
	return &TopicHandler{topicService: topicService}
}

type TopicRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// CreateTopic godoc
// @Summary      Create a debate topic
// @Tags         topics
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body TopicRequest true "Topic data"
// @Success      201 {object} models.Topic
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/topics [post]
func (h *TopicHandler) CreateTopic(c *gin.Context) {
	var req TopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	topic, err := h.topicService.CreateTopic(currentUserID(c), req.Title, req.Description, req.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, topic)
}

// ListTopics godoc
// @Summary      List debate topics
// @Tags         topics
// @Produce      json
// @Param        category query string false "Filter by category"
// @Success      200 {array} models.Topic
// @Router       /api/v1/topics [get]
func (h *TopicHandler) ListTopics(c *gin.Context) {
	topics, err := h.topicService.ListTopics(c.Query("category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, topics)
}

// GetTopic godoc
// @Summary      Get a topic
// @Tags         topics
// @Produce      json
// @Param        id path int true "Topic ID"
// @Success      200 {object} models.Topic
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/topics/{id} [get]
func (h *TopicHandler) GetTopic(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid topic id"})
		return
	}

	topic, err := h.topicService.GetTopic(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, topic)
}

// UpdateTopic godoc
// @Summary      Update a topic
// @Tags         topics
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "Topic ID"
// @Param        request body TopicRequest true "Topic data"
// @Success      200 {object} models.Topic
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/topics/{id} [put]
func (h *TopicHandler) UpdateTopic(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid topic id"})
		return
	}

	var req TopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	topic, err := h.topicService.UpdateTopic(uint(id), currentUserID(c), req.Title, req.Description, req.Category)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, topic)
}

// DeleteTopic godoc
// @Summary      Delete a topic
// @Tags         topics
// @Security     BearerAuth
// @Param        id path int true "Topic ID"
// @Success      200 {object} MessageResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/topics/{id} [delete]
func (h *TopicHandler) DeleteTopic(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid topic id"})
		return
	}

	if err := h.topicService.DeleteTopic(uint(id), currentUserID(c)); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "topic deleted"})
}
