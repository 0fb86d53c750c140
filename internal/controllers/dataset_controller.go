package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mldash/backend/internal/logger"
	"github.com/mldash/backend/internal/models"
	"github.com/mldash/backend/internal/storage"
)

type DatasetController struct {
	db          *gorm.DB
	objectStore *storage.ObjectStore
}

// NewDatasetController creates a dataset controller. objectStore may be nil
// when artifact storage is not configured.
func NewDatasetController(db *gorm.DB, objectStore *storage.ObjectStore) *DatasetController {
	return &DatasetController{db: db, objectStore: objectStore}
}

type CreateDatasetRequest struct {
	Name        string       `json:"name" binding:"required"`
	Modality    string       `json:"modality" binding:"required,oneof=text image audio video multimodal"`
	SizeBytes   int64        `json:"size_bytes"`
	FileCount   int          `json:"file_count"`
	Description string       `json:"description"`
	StoragePath string       `json:"storage_path"`
	Metadata    models.JSONB `json:"metadata"`
}

func (dc *DatasetController) GetDatasets(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := dc.db.Model(&models.Dataset{})
	if modality := c.Query("modality"); modality != "" {
		query = query.Where("modality = ?", modality)
	}

	var total int64
	query.Count(&total)

	switch sortBy := c.DefaultQuery("sort_by", "created_at"); sortBy {
	case "name", "size_bytes":
		query = query.Order(sortBy + " " + sortOrder(c))
	default:
		query = query.Order("created_at " + sortOrder(c))
	}

	var datasets []models.Dataset
	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Find(&datasets).Error; err != nil {
		logger.WithError(err, "dataset_controller").Error("Failed to fetch datasets")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch datasets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       datasets,
		"pagination": paginationBlock(total, page, pageSize),
	})
}

func (dc *DatasetController) GetDataset(c *gin.Context) {
	var dataset models.Dataset
	if err := dc.db.Where("id = ?", c.Param("id")).First(&dataset).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not found"})
		return
	}

	c.JSON(http.StatusOK, dataset)
}

func (dc *DatasetController) CreateDataset(c *gin.Context) {
	var req CreateDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dataset := models.Dataset{
		Name:        req.Name,
		Modality:    models.Modality(req.Modality),
		SizeBytes:   req.SizeBytes,
		FileCount:   req.FileCount,
		Description: req.Description,
		StoragePath: req.StoragePath,
		Metadata:    req.Metadata,
	}

	if err := dc.db.Create(&dataset).Error; err != nil {
		logger.WithError(err, "dataset_controller").Error("Failed to create dataset")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create dataset"})
		return
	}

	c.JSON(http.StatusCreated, dataset)
}

func (dc *DatasetController) DeleteDataset(c *gin.Context) {
	var dataset models.Dataset
	if err := dc.db.Where("id = ?", c.Param("id")).First(&dataset).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not found"})
		return
	}

	if dc.objectStore != nil {
		// Artifact cleanup is best-effort; a stale prefix never blocks row
		// deletion.
		if err := dc.objectStore.RemoveDatasetFiles(c.Request.Context(), dataset.ID); err != nil {
			logger.WithError(err, "dataset_controller").Warn("Failed to remove dataset artifacts")
		}
	}

	if err := dc.db.Delete(&dataset).Error; err != nil {
		logger.WithError(err, "dataset_controller").Error("Failed to delete dataset")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete dataset"})
		return
	}

	c.Status(http.StatusNoContent)
}

// UploadDatasetFile stores one artifact for the dataset in the object store
// and updates the dataset's bookkeeping columns.
func (dc *DatasetController) UploadDatasetFile(c *gin.Context) {
	if dc.objectStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Artifact storage is not configured"})
		return
	}

	var dataset models.Dataset
	if err := dc.db.Where("id = ?", c.Param("id")).First(&dataset).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not found"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file in request"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	objectPath, err := dc.objectStore.UploadDatasetFile(
		c.Request.Context(),
		dataset.ID,
		fileHeader.Filename,
		file,
		fileHeader.Size,
		fileHeader.Header.Get("Content-Type"),
	)
	if err != nil {
		logger.WithError(err, "dataset_controller").Error("Failed to upload dataset artifact")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}

	now := time.Now().UTC()
	if err := dc.db.Model(&dataset).Updates(map[string]interface{}{
		"storage_path": objectPath,
		"size_bytes":   dataset.SizeBytes + fileHeader.Size,
		"file_count":   dataset.FileCount + 1,
		"updated_at":   &now,
	}).Error; err != nil {
		logger.WithError(err, "dataset_controller").Error("Failed to update dataset after upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update dataset"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"dataset_id":   dataset.ID,
		"storage_path": objectPath,
		"size_bytes":   fileHeader.Size,
	})
}

// DownloadDatasetFile streams the dataset's stored artifact back to the
// client.
func (dc *DatasetController) DownloadDatasetFile(c *gin.Context) {
	if dc.objectStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Artifact storage is not configured"})
		return
	}

	var dataset models.Dataset
	if err := dc.db.Where("id = ?", c.Param("id")).First(&dataset).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not found"})
		return
	}

	if dataset.StoragePath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dataset has no stored artifact"})
		return
	}

	reader, size, contentType, err := dc.objectStore.DownloadDatasetFile(c.Request.Context(), dataset.StoragePath)
	if err != nil {
		logger.WithError(err, "dataset_controller").Error("Failed to download dataset artifact")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to download file"})
		return
	}
	defer reader.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, size, contentType, reader, nil)
}

func sortOrder(c *gin.Context) string {
	if c.DefaultQuery("order", "desc") == "asc" {
		return "asc"
	}
	return "desc"
}

func paginationBlock(total int64, page, pageSize int) gin.H {
	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	return gin.H{
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": totalPages,
	}
}
