package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"github.com/tazhibayda/smartfarm-api/internal/identity"
	"go.uber.org/zap"
)

// Profile godoc
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} Envelope
// @Failure 401 {object} Envelope
// @Router /users/profile [get]
func (h *Handler) Profile(c *gin.Context) {
	u, _ := CurrentUser(c)
	ok(c, http.StatusOK, "profile", userResp{User: u})
}

type profileReq struct {
	Username    string            `json:"username"    binding:"omitempty,username"`
	Email       string            `json:"email"       binding:"omitempty,email"`
	FullName    string            `json:"fullName"    binding:"max=100"`
	AvatarURL   string            `json:"avatarUrl"   binding:"omitempty,url"`
	Bio         string            `json:"bio"         binding:"max=500"`
	Website     string            `json:"website"     binding:"omitempty,url"`
	Location    string            `json:"location"    binding:"max=100"`
	PhoneNumber string            `json:"phoneNumber" binding:"omitempty,e164"`
	Preferences map[string]string `json:"preferences"`
}

func (r profileReq) changes() identity.ProfileChanges {
	return identity.ProfileChanges{
		Username:    r.Username,
		Email:       r.Email,
		FullName:    r.FullName,
		AvatarURL:   r.AvatarURL,
		Bio:         r.Bio,
		Website:     r.Website,
		Location:    r.Location,
		PhoneNumber: r.PhoneNumber,
		Preferences: r.Preferences,
	}
}

// UpdateProfile godoc
// @Summary Update own profile; empty fields are left as they are
// @Tags users
// @Accept json
// @Produce json
// @Param payload body profileReq true "changes"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /users/profile [put]
func (h *Handler) UpdateProfile(c *gin.Context) {
	var in profileReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	me, _ := CurrentUser(c)
	u, err := h.resolver.UpdateProfile(c.Request.Context(), me.ID, in.changes())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "profile updated", userResp{User: u})
}

// ListUsers godoc
// @Summary List users (admin)
// @Tags admin
// @Produce json
// @Param limit query int false "page size, max 200"
// @Param skip query int false "offset"
// @Success 200 {object} Envelope
// @Failure 403 {object} Envelope
// @Router /users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	h.listUsers(c, "")
}

// UsersByRole godoc
// @Summary List users with one role (admin)
// @Tags admin
// @Produce json
// @Param role path string true "SUPERADMIN, ADMIN, ORG or USER"
// @Success 200 {object} Envelope
// @Router /users/role/{role} [get]
func (h *Handler) UsersByRole(c *gin.Context) {
	h.listUsers(c, domain.Role(c.Param("role")))
}

func (h *Handler) listUsers(c *gin.Context, role domain.Role) {
	f := domain.UserFilter{Role: role}
	var err error
	if f.Limit, err = queryInt(c, "limit"); err != nil {
		fail(c, domain.Validation("limit", "limit must be a non-negative integer"))
		return
	}
	if f.Skip, err = queryInt(c, "skip"); err != nil {
		fail(c, domain.Validation("skip", "skip must be a non-negative integer"))
		return
	}
	users, err := h.dir.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "users", gin.H{"users": users, "count": len(users)})
}

func queryInt(c *gin.Context, key string) (int, error) {
	s := c.Query(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

// UserByPublicID godoc
// @Summary Get one user by public id (admin)
// @Tags admin
// @Produce json
// @Param publicId path string true "e.g. SM-00001"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /users/{publicId} [get]
func (h *Handler) UserByPublicID(c *gin.Context) {
	h.oneUser(c, func() (*domain.User, error) {
		return h.dir.ByPublicID(c.Request.Context(), c.Param("publicId"))
	})
}

// UserByUsername godoc
// @Summary Get one user by username (admin)
// @Tags admin
// @Produce json
// @Param username path string true "username"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /users/username/{username} [get]
func (h *Handler) UserByUsername(c *gin.Context) {
	h.oneUser(c, func() (*domain.User, error) {
		return h.dir.ByUsername(c.Request.Context(), c.Param("username"))
	})
}

// UserByEmail godoc
// @Summary Get one user by email (admin)
// @Tags admin
// @Produce json
// @Param email path string true "email"
// @Success 200 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /users/email/{email} [get]
func (h *Handler) UserByEmail(c *gin.Context) {
	h.oneUser(c, func() (*domain.User, error) {
		return h.dir.ByEmail(c.Request.Context(), c.Param("email"))
	})
}

func (h *Handler) oneUser(c *gin.Context, find func() (*domain.User, error)) {
	u, err := find()
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "user", userResp{User: u})
}

type adminUpdateReq struct {
	profileReq
	Role domain.Role `json:"role" binding:"omitempty,oneof=SUPERADMIN ADMIN ORG USER"`
}

// AdminUpdateUser godoc
// @Summary Update a user's profile or role (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Param publicId path string true "e.g. SM-00001"
// @Param payload body adminUpdateReq true "changes"
// @Success 200 {object} Envelope
// @Failure 403 {object} Envelope
// @Failure 404 {object} Envelope
// @Router /users/{publicId} [put]
func (h *Handler) AdminUpdateUser(c *gin.Context) {
	var in adminUpdateReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	me, _ := CurrentUser(c)
	ch := in.changes()
	ch.Role = in.Role
	u, err := h.resolver.AdminUpdate(c.Request.Context(), me.Role, c.Param("publicId"), ch)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "user updated", userResp{User: u})
}

type deleteUsersReq struct {
	PublicIDs []string `json:"publicIds" binding:"required,min=1,dive,required"`
}

// DeleteUsers godoc
// @Summary Delete several users at once (superadmin)
// @Tags admin
// @Accept json
// @Produce json
// @Param payload body deleteUsersReq true "public ids"
// @Success 200 {object} Envelope
// @Failure 403 {object} Envelope
// @Router /users [delete]
func (h *Handler) DeleteUsers(c *gin.Context) {
	var in deleteUsersReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	me, _ := CurrentUser(c)
	n, err := h.dir.DeleteMany(c.Request.Context(), me.ID, in.PublicIDs)
	if err != nil {
		fail(c, err)
		return
	}
	logFor(c).Info("users deleted", zap.Int64("count", n), zap.Strings("public_ids", in.PublicIDs))
	ok(c, http.StatusOK, "users deleted", gin.H{"deletedCount": n})
}
