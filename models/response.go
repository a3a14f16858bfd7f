package models

type H map[string]interface{}

type BaseResponse struct {
	Status        int         `json:"Status"`
	StatusCode    int         `json:"StatusCode"`
	StatusMessage interface{} `json:"StatusMessage"`
}

func NewSuccess(status, statusCode int, msg interface{}) H {
	return H{"Status": status, "StatusCode": statusCode, "StatusMessage": msg}
}

func NewSuccessWithData(status, statusCode int, data interface{}) H {
	return H{"Status": status, "StatusCode": statusCode, "StatusMessage": "Success", "Data": data}
}

func NewErrorResponse(status, statusCode int, msg interface{}) H {
	return H{"Status": status, "StatusCode": statusCode, "StatusMessage": msg}
}
