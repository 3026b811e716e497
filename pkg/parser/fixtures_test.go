package parser

// Shared fixtures for parser tests. The disbursement fixture mirrors the
// IATI 2.03 activity-standard example document.

const disbursementActivityXML = `
  <iati-activity default-currency="EUR" humanitarian="1" last-updated-datetime="2014-09-10T07:15:37Z" xml:lang="en">
    <iati-identifier>AA-AAA-123456789-ABC123</iati-identifier>
    <reporting-org ref="AA-AAA-123456789" type="40">
      <narrative>Organisation name</narrative>
    </reporting-org>
    <title>
      <narrative>Activity title</narrative>
      <narrative xml:lang="fr">Titre de l'activité</narrative>
    </title>
    <description>
      <narrative>General activity description text.</narrative>
    </description>
    <activity-status code="2" />
    <activity-date iso-date="2012-04-15" type="1" />
    <activity-date iso-date="2015-12-31" type="3" />
    <sector vocabulary="1" code="11110" percentage="100" />
    <country-budget-items vocabulary="2">
      <budget-item code="1.1.1" percentage="50">
        <description>
          <narrative>Description text</narrative>
        </description>
      </budget-item>
    </country-budget-items>
    <humanitarian-scope type="1" vocabulary="1-2" code="EQ-2015-000048-NPL">
      <narrative>Nepal Earthquake April 2015</narrative>
    </humanitarian-scope>
    <budget type="1" status="1">
      <period-start iso-date="2014-01-01" />
      <period-end iso-date="2014-12-31" />
      <value currency="EUR" value-date="2014-01-01">1000</value>
    </budget>
    <budget type="1" status="1">
      <period-start iso-date="2015-01-01" />
      <period-end iso-date="2015-12-31" />
      <value currency="EUR" value-date="2015-01-01">2500</value>
    </budget>
    <planned-disbursement type="1">
      <period-start iso-date="2014-01-01" />
      <period-end iso-date="2014-12-31" />
      <value currency="EUR" value-date="2014-01-01">3000</value>
      <provider-org provider-activity-id="BB-BBB-123456789-1234AA" type="10" ref="BB-BBB-123456789">
        <narrative>Agency B</narrative>
      </provider-org>
      <receiver-org receiver-activity-id="AA-AAA-123456789-1234" type="23" ref="AA-AAA-123456789">
        <narrative>Agency A</narrative>
      </receiver-org>
    </planned-disbursement>
    <transaction ref="1234" humanitarian="1">
      <transaction-type code="1" />
      <transaction-date iso-date="2012-01-01" />
      <value currency="EUR" value-date="2012-01-01">1000</value>
      <description>
        <narrative>Transaction description text</narrative>
      </description>
      <provider-org provider-activity-id="BB-BBB-123456789-1234AA" type="10" ref="BB-BBB-123456789">
        <narrative>Agency B</narrative>
      </provider-org>
      <receiver-org receiver-activity-id="AA-AAA-123456789-1234" type="23" ref="AA-AAA-123456789">
        <narrative>Agency A</narrative>
      </receiver-org>
      <disbursement-channel code="1" />
      <flow-type code="10" />
      <finance-type code="110" />
      <aid-type code="A01" vocabulary="1" />
      <tied-status code="3" />
    </transaction>
    <transaction>
      <transaction-type code="3" />
      <transaction-date iso-date="2012-03-01" />
      <value currency="EUR" value-date="2012-03-01">400</value>
    </transaction>
    <contact-info type="1">
      <organisation>
        <narrative>Agency A</narrative>
      </organisation>
      <person-name>
        <narrative>A. Example</narrative>
      </person-name>
      <telephone>0044111222333444</telephone>
      <email>someone@example.org</email>
      <website>https://www.example.org</website>
    </contact-info>
    <location ref="AF-KAN">
      <location-reach code="1" />
      <location-id vocabulary="G1" code="1453782" />
      <name>
        <narrative>Location name</narrative>
      </name>
      <description>
        <narrative>Location description</narrative>
      </description>
      <point srsName="http://www.opengis.net/def/crs/EPSG/0/4326">
        <pos>31.616944 65.716944</pos>
      </point>
      <exactness code="1" />
      <location-class code="2" />
    </location>
    <related-activity ref="AA-AAA-123456789-6789" type="1" />
    <result type="1" aggregation-status="1">
      <title>
        <narrative>Result title</narrative>
      </title>
      <description>
        <narrative>Result description text</narrative>
      </description>
      <indicator measure="1" ascending="1">
        <title>
          <narrative>Indicator title</narrative>
        </title>
        <description>
          <narrative>Indicator description text</narrative>
        </description>
        <baseline year="2012" value="10">
          <comment>
            <narrative>Baseline comment text</narrative>
          </comment>
        </baseline>
        <period>
          <period-start iso-date="2013-01-01" />
          <period-end iso-date="2013-03-31" />
          <target value="10" />
          <actual value="11" />
        </period>
      </indicator>
    </result>
  </iati-activity>`

const secondActivityXML = `
  <iati-activity>
    <iati-identifier>GB-GOV-1-12345</iati-identifier>
    <reporting-org ref="GB-GOV-1" type="10">
      <narrative>UK Government</narrative>
    </reporting-org>
    <title>
      <narrative>Water and sanitation programme</narrative>
    </title>
    <activity-status code="2" />
    <activity-date iso-date="2013-06-01" type="1" />
  </iati-activity>`

// malformedActivityXML carries an unknown entity, which the strict
// per-activity decode rejects while the span scan rides over it.
const malformedActivityXML = `
  <iati-activity>
    <iati-identifier>XX-XXX-1</iati-identifier>
    <title><narrative>Broken &bogus; title</narrative></title>
  </iati-activity>`

func wrapActivities(activities ...string) string {
	doc := `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<iati-activities version="2.03" generated-datetime="2014-09-10T07:15:37Z">`
	for _, a := range activities {
		doc += a
	}
	return doc + "\n</iati-activities>"
}
