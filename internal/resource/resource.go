package resource

// Resource is the payload a handler hands over for encoding.
type Resource struct {
	Data *Value
	// ContentType forces the response format when set; otherwise the
	// response factory negotiates it from the request.
	ContentType string
}

// New wraps data into a Resource.
func New(data *Value) Resource {
	return Resource{Data: data}
}

// HasData reports whether there is anything worth encoding. Nil data, a
// null or empty-string scalar and empty containers count as no data.
func (r Resource) HasData() bool {
	d := r.Data
	if d.IsNull() {
		return false
	}
	if d.IsContainer() {
		return d.Len() > 0
	}
	return d.Text() != ""
}
