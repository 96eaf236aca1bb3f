package store

// Order queries
const (
	insertOrderSQL = `
		INSERT INTO orders (device_id, table_number, items, total, status, created_at,
		                    payment_method, payment_status, payment_proof, order_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	getOrderSQL = `
		SELECT id, device_id, table_number, items, total, status, created_at,
		       payment_method, payment_status, payment_proof, order_number
		FROM orders WHERE id = $1`

	listOrdersByDeviceSQL = `
		SELECT id, device_id, table_number, items, total, status, created_at,
		       payment_method, payment_status, payment_proof, order_number
		FROM orders
		WHERE device_id = $1
		ORDER BY created_at DESC`

	listPendingOrdersByDeviceSQL = `
		SELECT id, device_id, table_number, items, total, status, created_at,
		       payment_method, payment_status, payment_proof, order_number
		FROM orders
		WHERE device_id = $1 AND status = 'pending'
		ORDER BY created_at DESC`
)

// Catalog queries
const (
	listCategoriesSQL = `SELECT id, name FROM categories ORDER BY name ASC`

	listMenuItemsSQL = `
		SELECT id, name, price, category, image_url, options
		FROM menu_items
		ORDER BY category ASC, name ASC`

	getGCashPayeeSQL = `SELECT full_name, phone_number FROM payees WHERE doc_id = $1`
)

// Session queries
const (
	saveTableBindingSQL = `
		INSERT INTO device_sessions (device_id, table_number, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (device_id) DO UPDATE SET
			table_number = EXCLUDED.table_number,
			updated_at = NOW()`

	loadTableBindingSQL = `SELECT table_number FROM device_sessions WHERE device_id = $1`
)

// updatableColumns is the allowlist for partial-field order updates.
var updatableColumns = map[string]string{
	"status":         "status",
	"table_number":   "table_number",
	"payment_method": "payment_method",
	"payment_status": "payment_status",
	"payment_proof":  "payment_proof",
}
