package panel

import "testing"

func TestLink_String(t *testing.T) {
	got := Link{
		UUID:      "abc",
		Host:      "1.2.3.4",
		Port:      443,
		PublicKey: "K",
		SNI:       "www.x.com",
		ShortID:   "S",
		Flow:      "F",
		Label:     "L",
	}.String()

	want := "vless://abc@1.2.3.4:443?type=tcp&security=reality&pbk=K&sni=www.x.com&sid=S&flow=F#L"
	if got != want {
		t.Errorf("unexpected uri\n got: %s\nwant: %s", got, want)
	}
}

func TestLink_String_IPv6Host(t *testing.T) {
	got := Link{UUID: "u", Host: "::1", Port: 8443}.String()
	want := "vless://u@[::1]:8443?type=tcp&security=reality&pbk=&sni=&sid=&flow=#"
	if got != want {
		t.Errorf("unexpected uri: %s", got)
	}
}

func TestEncodeQR_PNG(t *testing.T) {
	png, err := EncodeQR("vless://abc@1.2.3.4:443?type=tcp#L")
	if err != nil {
		t.Fatalf("EncodeQR: %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Errorf("expected PNG data, got % x", png[:8])
	}
}
