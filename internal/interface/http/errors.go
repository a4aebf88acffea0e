package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/collabhub/collabhub/internal/domain/apperror"
	"github.com/collabhub/collabhub/pkg/response"
)

// fail writes err as an API error. Technical failures are logged and only a
// generic message reaches the client.
func fail(c *gin.Context, logger *logrus.Logger, err error) {
	if kind := apperror.KindOf(err); kind == apperror.KindTechnical || kind == apperror.KindProvider {
		orStandard(logger).WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).Error("request failed")
	}
	response.Error[any](c, apperror.HTTPStatus(err), apperror.PublicMessage(err), nil)
}

func orStandard(l *logrus.Logger) *logrus.Logger {
	if l == nil {
		return logrus.StandardLogger()
	}
	return l
}
