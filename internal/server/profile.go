package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      List Billing Profiles
// @Description  List customers the engine bills monthly
// @Tags         profiles
// @Produce      json
// @Success      200  {object}  []customerdomain.BillingProfile
// @Router       /profiles [get]
func (s *Server) ListBillingProfiles(c *gin.Context) {
	resp, err := s.customerRepo.ListBillable(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Billing Profile
// @Tags         profiles
// @Produce      json
// @Param        id   path      string  true  "Profile ID"
// @Success      200  {object}  customerdomain.BillingProfile
// @Router       /profiles/{id} [get]
func (s *Server) GetBillingProfile(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid profile id"))
		return
	}

	resp, err := s.customerRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
