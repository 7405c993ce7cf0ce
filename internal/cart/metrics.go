package cart

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type outcome string

const (
	outcomeOK       outcome = "ok"
	outcomeShortage outcome = "shortage"
	outcomeFailed   outcome = "failed"
	outcomeIgnored  outcome = "ignored"
)

const (
	opAdd    = "add_product"
	opRemove = "remove_product"
	opUpdate = "update_product_amount"
)

var cartOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_cart_operations_total",
		Help: "Cart operations by operation and outcome",
	},
	[]string{"operation", "outcome"},
)
