package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"liftplanner/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxImageSize = 8 << 20

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// uploadDir resolves the attachment storage root.
func uploadDir() string {
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		return dir
	}
	return "./uploads"
}

// UploadImageHandler godoc
// @Summary      Upload a report attachment
// @Description  Accepts jpg, jpeg, png or webp up to 8 MB. Returns the image record to embed in a calculation's images list.
// @Tags         upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        file     formData  file    true   "Image file"
// @Param        caption  formData  string  false  "Caption shown in the report"
// @Success      201  {object}  models.CalculationImage
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/uploads [post]
func UploadImageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !allowedImageExts[ext] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type, use jpg, png or webp"})
			return
		}
		if file.Size > maxImageSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file exceeds the 8 MB limit"})
			return
		}

		id := uuid.NewString()
		path, err := saveUpload(file, uploadDir(), id+ext)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file: " + err.Error()})
			return
		}

		c.JSON(http.StatusCreated, models.CalculationImage{
			ID:      id,
			URL:     "/uploads/" + filepath.Base(path),
			Caption: c.PostForm("caption"),
		})
	}
}

// ServeUploadHandler godoc
// @Summary      Serve a stored attachment
// @Tags         upload
// @Produce      application/octet-stream
// @Param        file  path  string  true  "File name"
// @Success      200  "File content"
// @Failure      404  {object}  models.ErrorResponse
// @Router       /uploads/{file} [get]
func ServeUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := filepath.Base(c.Param("file"))
		if name == "" || name == "." || strings.Contains(name, "..") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
			return
		}

		root, err := filepath.Abs(uploadDir())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		path := filepath.Join(root, name)
		if !strings.HasPrefix(path, root+string(os.PathSeparator)) {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.File(path)
	}
}

// saveUpload writes a multipart file under dir with the given name, creating
// the directory on first use.
func saveUpload(file *multipart.FileHeader, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("unable to create directory %s: %w", dir, err)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dstPath := filepath.Join(dir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("unable to create the file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("unable to save the file: %w", err)
	}
	return dstPath, nil
}
