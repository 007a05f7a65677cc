package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// TransactionAttributes tags the New Relic transaction started by nrgin
// with the caller and the ride being acted on. Errors recorded on the gin
// context are reported to the transaction.
func TransactionAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if caller := CallerID(c); caller != "" {
			txn.AddAttribute("caller_id", caller)
		}
		if rideID := c.Param("id"); rideID != "" {
			txn.AddAttribute("ride_id", rideID)
		}

		c.Next()

		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
