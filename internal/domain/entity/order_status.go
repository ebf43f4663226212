package entity

// OrderStatus estado de una orden de venta. Draft cubre también las ventas pausadas o pendientes.
type OrderStatus uint8

const (
	OrderDraft OrderStatus = iota + 1
	OrderPaid
	OrderCompleted
	OrderCancelled
)

var orderStatuses = newEnumTable("order_status", map[OrderStatus]string{
	OrderDraft:     "Draft",
	OrderPaid:      "Paid",
	OrderCompleted: "Completed",
	OrderCancelled: "Cancelled",
})

func (s OrderStatus) String() string                { return orderStatuses.name(s) }
func (s OrderStatus) Valid() bool                   { return orderStatuses.valid(s) }
func (s OrderStatus) MarshalText() ([]byte, error)  { return orderStatuses.marshal(s) }
func (s *OrderStatus) UnmarshalText(b []byte) error { return unmarshalInto(orderStatuses, s, b) }

// ParseOrderStatus convierte el nombre serializado en OrderStatus.
func ParseOrderStatus(s string) (OrderStatus, error) { return orderStatuses.parse(s) }

// Terminal Completed y Cancelled no admiten más transiciones.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// PaymentMethod medio de pago de una orden.
type PaymentMethod uint8

const (
	PaymentCash PaymentMethod = iota + 1
	PaymentCard
	PaymentMobileMoney
	PaymentInsurance
	PaymentCredit
)

var paymentMethods = newEnumTable("payment_method", map[PaymentMethod]string{
	PaymentCash:        "Cash",
	PaymentCard:        "Card",
	PaymentMobileMoney: "MobileMoney",
	PaymentInsurance:   "Insurance",
	PaymentCredit:      "Credit",
})

func (m PaymentMethod) String() string                { return paymentMethods.name(m) }
func (m PaymentMethod) Valid() bool                   { return paymentMethods.valid(m) }
func (m PaymentMethod) MarshalText() ([]byte, error)  { return paymentMethods.marshal(m) }
func (m *PaymentMethod) UnmarshalText(b []byte) error { return unmarshalInto(paymentMethods, m, b) }

// ParsePaymentMethod convierte el nombre serializado en PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, error) { return paymentMethods.parse(s) }
