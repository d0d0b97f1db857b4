package controller

import (
	"math/big"
	"net/http"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/chatkit/common/ctxkey"
	"github.com/songquanpeng/chatkit/dto"
	"github.com/songquanpeng/chatkit/middleware"
	"github.com/songquanpeng/chatkit/monitor"
	"github.com/songquanpeng/chatkit/service/output"
)

// Parse answers POST /v1/parse. Output that does not match the requested type
// is reported as 422 with the fields of the format error.
func Parse(c *gin.Context) {
	var req dto.ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.Wrap(err, "decode parse request"))
		return
	}
	if err := getValidator().Struct(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.Wrap(err, "invalid parse request"))
		return
	}
	c.Set(ctxkey.ParserType, req.Type)

	kind := output.Kind(req.Type)
	p, ok := output.Lookup(kind)
	if !ok {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.Errorf("unknown parser type %q", req.Type))
		return
	}

	v, err := p.ParseAny(req.Text)
	if err != nil {
		fe, ok := output.AsFormatError(err)
		if !ok {
			middleware.AbortWithError(c, http.StatusInternalServerError, err)
			return
		}

		monitor.RecordParseFailure(fe.Type, fe.Reason.String())
		gmw.GetLogger(c).Debug("output rejected",
			zap.String("type", fe.Type), zap.String("reason", fe.Reason.String()))
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": dto.FormatErrorDetail{
				Message:    fe.Error(),
				Input:      fe.Input,
				Type:       fe.Type,
				Reason:     fe.Reason.String(),
				Constraint: fe.Constraint,
			},
		})
		return
	}

	c.JSON(http.StatusOK, dto.ParseResponse{Type: req.Type, Value: renderValue(kind, v)})
}

// renderValue keeps big numbers exact and prints temporal values in the
// layout they were parsed from.
func renderValue(kind output.Kind, v any) any {
	switch x := v.(type) {
	case *big.Int:
		return x.String()
	case *big.Float:
		return x.Text('g', -1)
	case time.Time:
		switch kind {
		case output.KindDate:
			return x.Format("2006-01-02")
		case output.KindTime:
			return x.Format("15:04:05.999999999")
		default:
			return x.Format("2006-01-02T15:04:05.999999999")
		}
	default:
		return v
	}
}

// ListParsers answers GET /v1/parsers.
func ListParsers(c *gin.Context) {
	kinds := output.Kinds()
	parsers := make([]dto.ParserInfo, 0, len(kinds))
	for _, k := range kinds {
		p, _ := output.Lookup(k)
		parsers = append(parsers, dto.ParserInfo{Type: string(k), FormatInstructions: p.FormatInstructions()})
	}
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": parsers})
}
