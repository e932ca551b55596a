package client

import (
	"strconv"
	"time"
)

// BookingClient talks to the booking collection served at "/".
type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseUrl, username, password string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseUrl).WithBasicAuth(username, password),
	}
}

func (c *BookingClient) Create(body any) (*Response, error) {
	return c.httpClient.POST("/", body)
}

func (c *BookingClient) CreateWithIdempotencyKey(body any, key string) (*Response, error) {
	return c.httpClient.POSTWithHeaders("/", body, map[string]string{"Idempotency-Key": key})
}

// CreateRaw posts body unchanged, for payloads that are not valid JSON.
func (c *BookingClient) CreateRaw(body []byte) (*Response, error) {
	return c.httpClient.POSTRaw("/", body)
}

func (c *BookingClient) GetAll() (*Response, error) {
	return c.httpClient.GET("/")
}

func (c *BookingClient) GetByID(id int) (*Response, error) {
	return c.httpClient.GET(bookingPath(id))
}

func (c *BookingClient) Replace(id int, body any) (*Response, error) {
	return c.httpClient.PUT(bookingPath(id), body)
}

func (c *BookingClient) Patch(id int, body any) (*Response, error) {
	return c.httpClient.PATCH(bookingPath(id), body)
}

func (c *BookingClient) Delete(id int) (*Response, error) {
	return c.httpClient.DELETE(bookingPath(id))
}

func (c *BookingClient) WaitForHealthy() error {
	return c.httpClient.WaitForHealthy(5 * time.Second)
}

func bookingPath(id int) string {
	return "/?id=" + strconv.Itoa(id)
}
