package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
	"github.com/yourusername/testcenter-api/internal/service"
)

// ProfileHandler обрабатывает запросы профиля и зоны видимости
type ProfileHandler struct {
	profileService *service.ProfileService
}

// NewProfileHandler создает новый обработчик профилей
func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// UpdateProfileRequest представляет запрос на обновление профиля
type UpdateProfileRequest struct {
	LastName       string `json:"last_name" binding:"max=100"`
	FirstName      string `json:"first_name" binding:"max=100"`
	Patronymic     string `json:"patronymic" binding:"max=100"`
	DepartmentCode string `json:"department_code" binding:"max=30"`
}

// GetMyProfile возвращает профиль текущего пользователя вместе с
// расшифровкой кода подразделения
func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	profile, err := h.profileService.GetProfile(userID)
	if err != nil {
		h.handleProfileError(c, err)
		return
	}

	hierarchy := "Не указано"
	canView := false
	if code, ok := profile.ParsedCode(); ok {
		hierarchy = code.Hierarchy()
		canView = code.HasViewRights
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":          profile,
		"department":       hierarchy,
		"can_view_results": canView,
	})
}

// UpdateMyProfile обновляет ФИО и код подразделения текущего пользователя
func (h *ProfileHandler) UpdateMyProfile(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.profileService.UpdateProfile(userID, service.UpdateProfileInput{
		LastName:       req.LastName,
		FirstName:      req.FirstName,
		Patronymic:     req.Patronymic,
		DepartmentCode: req.DepartmentCode,
	})
	if err != nil {
		h.handleProfileError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// VisibleUsers возвращает пользователей в зоне видимости текущего
// пользователя. Без права просмотра список пуст.
func (h *ProfileHandler) VisibleUsers(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	users, err := h.profileService.VisibleUsers(userID)
	if err != nil {
		h.handleProfileError(c, err)
		return
	}

	type visibleUser struct {
		UserID     uint   `json:"user_id"`
		Username   string `json:"username"`
		FullName   string `json:"full_name"`
		Department string `json:"department"`
	}

	out := make([]visibleUser, 0, len(users))
	for i := range users {
		u := users[i]
		row := visibleUser{UserID: u.ID, Username: u.Username}
		if u.Profile != nil {
			row.FullName = u.Profile.FullName()
			if code, ok := u.Profile.ParsedCode(); ok {
				row.Department = code.Hierarchy()
			}
		}
		out = append(out, row)
	}

	c.JSON(http.StatusOK, gin.H{"users": out, "count": len(out)})
}

func (h *ProfileHandler) handleProfileError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in ProfileHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
