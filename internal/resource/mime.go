package resource

// MIME types of the formats the service knows out of the box.
const (
	MIMEJSON     = "application/json"
	MIMEJSONP    = "application/javascript"
	MIMEQuery    = "application/x-www-form-urlencoded"
	MIMEXML      = "application/xml"
	MIMEYAML     = "application/x-yaml"
	MIMEProtobuf = "application/x-protobuf"
	// MIMENull marks a response without a body.
	MIMENull = "application/x-null"
)
