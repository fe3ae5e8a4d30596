package browser

import (
	"github.com/go-rod/rod/lib/proto"
)

// ToCookieParams converts cookies to the CDP form accepted by Network.setCookies
func ToCookieParams(cookies []Cookie) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, len(cookies))
	for i, c := range cookies {
		param := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
		}
		// Session cookies carry no expiry
		if c.Expires > 0 {
			param.Expires = proto.TimeSinceEpoch(c.Expires)
		}
		params[i] = param
	}
	return params
}

// FromNetworkCookies converts CDP cookies to the persisted form
func FromNetworkCookies(cookies []*proto.NetworkCookie) []Cookie {
	result := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		expires := float64(c.Expires)
		if c.Session {
			expires = -1
		}
		result = append(result, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return result
}
