package controller

import (
	"quiz_arena_backend/internal/service"
	"quiz_arena_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ImageController struct {
	StorageService *service.StorageService
}

func NewImageController(storage *service.StorageService) *ImageController {
	return &ImageController{StorageService: storage}
}

// Upload godoc
// @Summary 上传题目图片
// @Tags images
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param image formData file true "image file"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response
// @Router /api/admin/images/upload [post]
func (c *ImageController) Upload(ctx *gin.Context) {
	header, err := ctx.FormFile("image")
	if err != nil {
		util.BadRequest(ctx, "please upload an image")
		return
	}

	url, err := c.StorageService.UploadImage(ctx.Request.Context(), header)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"imageUrl": url})
}

// Delete godoc
// @Summary 删除已上传的图片
// @Tags images
// @Produce json
// @Security ApiKeyAuth
// @Param filename path string true "object name returned by upload"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/images/{filename} [delete]
func (c *ImageController) Delete(ctx *gin.Context) {
	if err := c.StorageService.DeleteImage(ctx.Request.Context(), ctx.Param("filename")); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "image deleted"})
}
