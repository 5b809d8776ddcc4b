// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keycodec.
//
// go-keycodec is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package der

import "encoding/asn1"

// Public key algorithms.
var (
	OIDRSAEncryption = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	OIDRSASSAPSS     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 10}
	OIDMGF1          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 8}
	OIDDSA           = asn1.ObjectIdentifier{1, 2, 840, 10040, 4, 1}
	OIDECPublicKey   = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	OIDDHKeyAgree    = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 3, 1}
	OIDX25519        = asn1.ObjectIdentifier{1, 3, 101, 110}
	OIDX448          = asn1.ObjectIdentifier{1, 3, 101, 111}
	OIDEd25519       = asn1.ObjectIdentifier{1, 3, 101, 112}
	OIDEd448         = asn1.ObjectIdentifier{1, 3, 101, 113}
)

// Named curves.
var (
	OIDCurveP192      = asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 1}
	OIDCurveP224      = asn1.ObjectIdentifier{1, 3, 132, 0, 33}
	OIDCurveP256      = asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}
	OIDCurveP384      = asn1.ObjectIdentifier{1, 3, 132, 0, 34}
	OIDCurveP521      = asn1.ObjectIdentifier{1, 3, 132, 0, 35}
	OIDCurveSecp256k1 = asn1.ObjectIdentifier{1, 3, 132, 0, 10}
	OIDPrimeField     = asn1.ObjectIdentifier{1, 2, 840, 10045, 1, 1}
)

// Hash algorithms.
var (
	OIDMD5        = asn1.ObjectIdentifier{1, 2, 840, 113549, 2, 5}
	OIDSHA1       = asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}
	OIDSHA224     = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 4}
	OIDSHA256     = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	OIDSHA384     = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	OIDSHA512     = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
	OIDSHA512_224 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 5}
	OIDSHA512_256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 6}
	OIDSHA3_256   = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 8}
	OIDSHA3_384   = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 9}
	OIDSHA3_512   = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 10}
)

// Signature algorithms.
var (
	OIDMD5WithRSA      = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 4}
	OIDSHA1WithRSA     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5}
	OIDSHA224WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 14}
	OIDSHA256WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	OIDSHA384WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}
	OIDSHA512WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}
	OIDECDSAWithSHA1   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 1}
	OIDECDSAWithSHA224 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 1}
	OIDECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	OIDECDSAWithSHA384 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	OIDECDSAWithSHA512 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}
	OIDDSAWithSHA1     = asn1.ObjectIdentifier{1, 2, 840, 10040, 4, 3}
	OIDDSAWithSHA224   = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 1}
	OIDDSAWithSHA256   = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 2}
)

// Distinguished name attribute types.
var (
	OIDCommonName           = asn1.ObjectIdentifier{2, 5, 4, 3}
	OIDSurname              = asn1.ObjectIdentifier{2, 5, 4, 4}
	OIDSerialNumber         = asn1.ObjectIdentifier{2, 5, 4, 5}
	OIDCountry              = asn1.ObjectIdentifier{2, 5, 4, 6}
	OIDLocality             = asn1.ObjectIdentifier{2, 5, 4, 7}
	OIDProvince             = asn1.ObjectIdentifier{2, 5, 4, 8}
	OIDStreetAddress        = asn1.ObjectIdentifier{2, 5, 4, 9}
	OIDOrganization         = asn1.ObjectIdentifier{2, 5, 4, 10}
	OIDOrganizationalUnit   = asn1.ObjectIdentifier{2, 5, 4, 11}
	OIDTitle                = asn1.ObjectIdentifier{2, 5, 4, 12}
	OIDBusinessCategory     = asn1.ObjectIdentifier{2, 5, 4, 15}
	OIDPostalCode           = asn1.ObjectIdentifier{2, 5, 4, 17}
	OIDGivenName            = asn1.ObjectIdentifier{2, 5, 4, 42}
	OIDEmailAddress         = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}
	OIDDomainComponent      = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 25}
	OIDUserID               = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}
	OIDJurisdictionLocality = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 60, 2, 1, 1}
	OIDJurisdictionProvince = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 60, 2, 1, 2}
	OIDJurisdictionCountry  = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 60, 2, 1, 3}
)

// Certificate and CRL extensions.
var (
	OIDExtSubjectKeyID          = asn1.ObjectIdentifier{2, 5, 29, 14}
	OIDExtKeyUsage              = asn1.ObjectIdentifier{2, 5, 29, 15}
	OIDExtSubjectAltName        = asn1.ObjectIdentifier{2, 5, 29, 17}
	OIDExtIssuerAltName         = asn1.ObjectIdentifier{2, 5, 29, 18}
	OIDExtBasicConstraints      = asn1.ObjectIdentifier{2, 5, 29, 19}
	OIDExtCRLNumber             = asn1.ObjectIdentifier{2, 5, 29, 20}
	OIDExtReasonCode            = asn1.ObjectIdentifier{2, 5, 29, 21}
	OIDExtNameConstraints       = asn1.ObjectIdentifier{2, 5, 29, 30}
	OIDExtCRLDistributionPoints = asn1.ObjectIdentifier{2, 5, 29, 31}
	OIDExtCertificatePolicies   = asn1.ObjectIdentifier{2, 5, 29, 32}
	OIDExtAuthorityKeyID        = asn1.ObjectIdentifier{2, 5, 29, 35}
	OIDExtExtendedKeyUsage      = asn1.ObjectIdentifier{2, 5, 29, 37}
	OIDExtAuthorityInfoAccess   = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 1}
	OIDExtSubjectInfoAccess     = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 11}
	OIDExtSCTList               = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 4, 2}
	OIDExtCTPoison              = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 4, 3}
	OIDExtOCSPNoCheck           = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 5}
	OIDExtNetscapeCertType      = asn1.ObjectIdentifier{2, 16, 840, 1, 113730, 1, 1}
	OIDExtNetscapeComment       = asn1.ObjectIdentifier{2, 16, 840, 1, 113730, 1, 13}
	OIDExtMSCertTemplate        = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 21, 7}
	OIDExtMSCAVersion           = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 21, 1}
	OIDExtMSCertType            = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 20, 2}
)

// Extended key usages.
var (
	OIDEKUAny             = asn1.ObjectIdentifier{2, 5, 29, 37, 0}
	OIDEKUServerAuth      = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 1}
	OIDEKUClientAuth      = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 2}
	OIDEKUCodeSigning     = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 3}
	OIDEKUEmailProtection = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 4}
	OIDEKUTimeStamping    = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 8}
	OIDEKUOCSPSigning     = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 9}
	OIDEKUMSServerGated   = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 10, 3, 3}
	OIDEKUNSServerGated   = asn1.ObjectIdentifier{2, 16, 840, 1, 113730, 4, 1}
)

// Access methods, policies and qualifiers.
var (
	OIDAccessOCSP          = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1}
	OIDAccessCAIssuers     = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 2}
	OIDPolicyAny           = asn1.ObjectIdentifier{2, 5, 29, 32, 0}
	OIDPolicyEV            = asn1.ObjectIdentifier{2, 23, 140, 1, 1}
	OIDPolicyDV            = asn1.ObjectIdentifier{2, 23, 140, 1, 2, 1}
	OIDPolicyOV            = asn1.ObjectIdentifier{2, 23, 140, 1, 2, 2}
	OIDPolicyIV            = asn1.ObjectIdentifier{2, 23, 140, 1, 2, 3}
	OIDQualifierCPS        = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 2, 1}
	OIDQualifierUserNotice = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 2, 2}
)

// PKCS#9 attributes used in certification requests.
var (
	OIDChallengePassword = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 7}
	OIDExtensionRequest  = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 14}
)

var oidNames = map[string]string{
	OIDRSAEncryption.String(): "rsaEncryption",
	OIDRSASSAPSS.String():     "RSASSA-PSS",
	OIDDSA.String():           "dsa",
	OIDECPublicKey.String():   "ecPublicKey",
	OIDDHKeyAgree.String():    "dhKeyAgreement",
	OIDX25519.String():        "X25519",
	OIDX448.String():          "X448",
	OIDEd25519.String():       "Ed25519",
	OIDEd448.String():         "Ed448",

	OIDCurveP192.String():      "P-192",
	OIDCurveP224.String():      "P-224",
	OIDCurveP256.String():      "P-256",
	OIDCurveP384.String():      "P-384",
	OIDCurveP521.String():      "P-521",
	OIDCurveSecp256k1.String(): "secp256k1",

	OIDMD5.String():        "md5",
	OIDSHA1.String():       "sha1",
	OIDSHA224.String():     "sha224",
	OIDSHA256.String():     "sha256",
	OIDSHA384.String():     "sha384",
	OIDSHA512.String():     "sha512",
	OIDSHA512_224.String(): "sha512-224",
	OIDSHA512_256.String(): "sha512-256",
	OIDSHA3_256.String():   "sha3-256",
	OIDSHA3_384.String():   "sha3-384",
	OIDSHA3_512.String():   "sha3-512",

	OIDMD5WithRSA.String():      "md5WithRSAEncryption",
	OIDSHA1WithRSA.String():     "sha1WithRSAEncryption",
	OIDSHA224WithRSA.String():   "sha224WithRSAEncryption",
	OIDSHA256WithRSA.String():   "sha256WithRSAEncryption",
	OIDSHA384WithRSA.String():   "sha384WithRSAEncryption",
	OIDSHA512WithRSA.String():   "sha512WithRSAEncryption",
	OIDECDSAWithSHA1.String():   "ecdsa-with-SHA1",
	OIDECDSAWithSHA224.String(): "ecdsa-with-SHA224",
	OIDECDSAWithSHA256.String(): "ecdsa-with-SHA256",
	OIDECDSAWithSHA384.String(): "ecdsa-with-SHA384",
	OIDECDSAWithSHA512.String(): "ecdsa-with-SHA512",
	OIDDSAWithSHA1.String():     "dsa-with-sha1",
	OIDDSAWithSHA224.String():   "dsa-with-sha224",
	OIDDSAWithSHA256.String():   "dsa-with-sha256",

	OIDCommonName.String():           "CN",
	OIDSurname.String():              "SN",
	OIDSerialNumber.String():         "serialNumber",
	OIDCountry.String():              "C",
	OIDLocality.String():             "L",
	OIDProvince.String():             "ST",
	OIDStreetAddress.String():        "street",
	OIDOrganization.String():         "O",
	OIDOrganizationalUnit.String():   "OU",
	OIDTitle.String():                "title",
	OIDBusinessCategory.String():     "businessCategory",
	OIDPostalCode.String():           "postalCode",
	OIDGivenName.String():            "GN",
	OIDEmailAddress.String():         "emailAddress",
	OIDDomainComponent.String():      "DC",
	OIDUserID.String():               "UID",
	OIDJurisdictionLocality.String(): "jurisdictionL",
	OIDJurisdictionProvince.String(): "jurisdictionST",
	OIDJurisdictionCountry.String():  "jurisdictionC",

	OIDExtSubjectKeyID.String():          "subjectKeyIdentifier",
	OIDExtKeyUsage.String():              "keyUsage",
	OIDExtSubjectAltName.String():        "subjectAltName",
	OIDExtIssuerAltName.String():         "issuerAltName",
	OIDExtBasicConstraints.String():      "basicConstraints",
	OIDExtCRLNumber.String():             "cRLNumber",
	OIDExtReasonCode.String():            "reasonCode",
	OIDExtNameConstraints.String():       "nameConstraints",
	OIDExtCRLDistributionPoints.String(): "cRLDistributionPoints",
	OIDExtCertificatePolicies.String():   "certificatePolicies",
	OIDExtAuthorityKeyID.String():        "authorityKeyIdentifier",
	OIDExtExtendedKeyUsage.String():      "extendedKeyUsage",
	OIDExtAuthorityInfoAccess.String():   "authorityInfoAccess",
	OIDExtSubjectInfoAccess.String():     "subjectInfoAccess",
	OIDExtSCTList.String():               "ctSignedCertificateTimestamps",
	OIDExtCTPoison.String():              "ctPrecertificatePoison",
	OIDExtOCSPNoCheck.String():           "ocspNoCheck",
	OIDExtNetscapeCertType.String():      "netscapeCertType",
	OIDExtNetscapeComment.String():       "netscapeComment",
	OIDExtMSCertTemplate.String():        "msCertificateTemplate",
	OIDExtMSCAVersion.String():           "msCAVersion",
	OIDExtMSCertType.String():            "msCertificateType",

	OIDEKUAny.String():             "anyExtendedKeyUsage",
	OIDEKUServerAuth.String():      "serverAuth",
	OIDEKUClientAuth.String():      "clientAuth",
	OIDEKUCodeSigning.String():     "codeSigning",
	OIDEKUEmailProtection.String(): "emailProtection",
	OIDEKUTimeStamping.String():    "timeStamping",
	OIDEKUOCSPSigning.String():     "OCSPSigning",
	OIDEKUMSServerGated.String():   "msSGC",
	OIDEKUNSServerGated.String():   "nsSGC",

	OIDAccessOCSP.String():          "OCSP",
	OIDAccessCAIssuers.String():     "caIssuers",
	OIDPolicyAny.String():           "anyPolicy",
	OIDPolicyEV.String():            "ev-guidelines",
	OIDPolicyDV.String():            "domain-validated",
	OIDPolicyOV.String():            "organization-validated",
	OIDPolicyIV.String():            "individual-validated",
	OIDQualifierCPS.String():        "cps",
	OIDQualifierUserNotice.String(): "unotice",

	OIDChallengePassword.String(): "challengePassword",
	OIDExtensionRequest.String():  "extensionRequest",
}

var oidByName = func() map[string]asn1.ObjectIdentifier {
	m := make(map[string]asn1.ObjectIdentifier, len(oidNames))
	for s, name := range oidNames {
		oid, _ := ParseOID(s)
		m[name] = oid
	}
	return m
}()

// OIDName returns the short name for a known OID, or its dotted form.
func OIDName(oid asn1.ObjectIdentifier) string {
	if name, ok := oidNames[oid.String()]; ok {
		return name
	}
	return oid.String()
}

// OIDByName resolves a short name back to its OID.
func OIDByName(name string) (asn1.ObjectIdentifier, bool) {
	oid, ok := oidByName[name]
	return oid, ok
}
